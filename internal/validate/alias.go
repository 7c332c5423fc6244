package validate

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/starford/gebo/internal/models"
)

const (
	aliasMinLen = 3
	aliasMaxLen = 50
)

var (
	aliasCharsetRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]*$`)
	aliasSplitRe   = regexp.MustCompile(`[^A-Za-z0-9]+`)

	aliasFillerWords = map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "or": {},
		"for": {}, "to": {}, "in": {}, "on": {},
	}
	aliasFillerSuffixes = map[string]struct{}{
		"notes": {}, "doc": {}, "docs": {},
	}
)

// AliasConvergence normalizes aliases and compares them pairwise across
// the whole graph. Two or more other nodes sharing a normalized alias is
// an error; exactly one conflicting peer is a warning with a merge
// suggestion. It also applies local quality checks to each alias.
type AliasConvergence struct {
	CaseSensitive       bool
	PartialMatching     bool
	SimilarityThreshold float64
}

// NewAliasConvergence creates the rule. A non-positive threshold falls
// back to 0.85.
func NewAliasConvergence(caseSensitive, partialMatching bool, threshold float64) *AliasConvergence {
	if threshold <= 0 {
		threshold = 0.85
	}
	return &AliasConvergence{
		CaseSensitive:       caseSensitive,
		PartialMatching:     partialMatching,
		SimilarityThreshold: threshold,
	}
}

func (*AliasConvergence) Name() string        { return "alias-convergence" }
func (*AliasConvergence) Priority() int       { return 70 }
func (*AliasConvergence) DependsOn() []string { return nil }

func (r *AliasConvergence) Check(node *models.Node, g Graph) Findings {
	var f Findings
	if len(node.Aliases) == 0 {
		return f
	}

	all, err := g.AllAliases()
	if err != nil {
		all = nil
	}

	seen := make(map[string]struct{}, len(node.Aliases))
	for _, alias := range node.Aliases {
		r.checkQuality(alias, &f)

		norm := r.Normalize(alias)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			f.Errorf("Duplicate alias: %s", alias)
			continue
		}
		seen[norm] = struct{}{}

		peers := r.conflictingPeers(node.ID, norm, all)
		switch {
		case len(peers) >= 2:
			f.Errorf("Alias %q conflicts across nodes: %s; merge or disambiguate these documents",
				alias, strings.Join(peers, ", "))
		case len(peers) == 1:
			f.Warnf("Alias %q is also used by %s; consider merging or cross-referencing %s and %s",
				alias, peers[0], node.ID, peers[0])
		}
	}
	return f
}

// checkQuality applies the per-alias local checks: non-empty, length
// bounds, charset, and consistent title casing.
func (r *AliasConvergence) checkQuality(alias string, f *Findings) {
	trimmed := strings.TrimSpace(alias)
	if trimmed == "" {
		f.Errorf("Empty alias")
		return
	}
	if len(trimmed) < aliasMinLen || len(trimmed) > aliasMaxLen {
		f.Errorf("Alias length out of range [%d,%d]: %s", aliasMinLen, aliasMaxLen, alias)
	}
	if !aliasCharsetRe.MatchString(trimmed) {
		f.Errorf("Alias contains invalid characters: %s", alias)
	}
	if !consistentCasing(trimmed) {
		f.Warnf("Inconsistent title casing: %s", alias)
	}
}

// consistentCasing reports whether every word shares one casing style:
// all words lowercase, or all words starting with an uppercase letter
// (fully uppercase acronyms count as capitalized).
func consistentCasing(alias string) bool {
	capitalized, lowercase := 0, 0
	for _, word := range strings.Fields(alias) {
		first := []rune(word)[0]
		switch {
		case unicode.IsUpper(first):
			capitalized++
		case unicode.IsLower(first):
			lowercase++
		}
	}
	return capitalized == 0 || lowercase == 0
}

// Normalize canonicalizes an alias for comparison: trim, fold case unless
// case-sensitive mode, collapse whitespace and punctuation, drop filler
// words and trailing filler suffixes.
func (r *AliasConvergence) Normalize(alias string) string {
	s := strings.TrimSpace(alias)
	if !r.CaseSensitive {
		s = strings.ToLower(s)
	}
	words := aliasSplitRe.Split(s, -1)

	kept := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, filler := aliasFillerWords[strings.ToLower(w)]; filler {
			continue
		}
		kept = append(kept, w)
	}
	for len(kept) > 0 {
		last := strings.ToLower(kept[len(kept)-1])
		if _, suffix := aliasFillerSuffixes[last]; !suffix {
			break
		}
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, " ")
}

// conflictingPeers returns the ids of other nodes with an alias matching
// norm, exactly or (when partial matching is enabled) by edit-distance
// similarity above the threshold.
func (r *AliasConvergence) conflictingPeers(selfID, norm string, all map[string][]string) []string {
	peerSet := make(map[string]struct{})
	for otherID, aliases := range all {
		if otherID == selfID {
			continue
		}
		for _, other := range aliases {
			otherNorm := r.Normalize(other)
			if otherNorm == "" {
				continue
			}
			if otherNorm == norm {
				peerSet[otherID] = struct{}{}
				break
			}
			if r.PartialMatching && levenshtein.Similarity(norm, otherNorm, nil) >= r.SimilarityThreshold {
				peerSet[otherID] = struct{}{}
				break
			}
		}
	}
	peers := make([]string, 0, len(peerSet))
	for p := range peerSet {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	return peers
}
