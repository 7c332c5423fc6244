package validate

import "time"

// Options carries the tunables of the built-in rule set.
type Options struct {
	DashboardMaxAge          time.Duration
	AliasCaseSensitive       bool
	AliasPartialMatching     bool
	AliasSimilarityThreshold float64
}

// DefaultRules returns the built-in rule set, ready for registration.
func DefaultRules(opts Options) []Rule {
	return []Rule{
		StructuralMetadata{},
		LinkIntegrity{},
		TagFormat{},
		HeadingHierarchy{},
		NewFreshness(opts.DashboardMaxAge),
		NeighborConvergence{},
		NewAliasConvergence(opts.AliasCaseSensitive, opts.AliasPartialMatching, opts.AliasSimilarityThreshold),
	}
}
