package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/gebo/internal/models"
)

// fakeGraph is an in-memory Graph for rule tests.
type fakeGraph struct {
	nodes    map[string]*models.Node
	tagPeers map[string][]string
	aliases  map[string][]string
}

func (g *fakeGraph) GetNode(id string) (*models.Node, error) {
	if g.nodes == nil {
		return nil, nil
	}
	return g.nodes[id], nil
}

func (g *fakeGraph) GetTagPeers(_, tag string) ([]string, error) {
	return g.tagPeers[tag], nil
}

func (g *fakeGraph) Backlinks(string) ([]string, error) { return nil, nil }

func (g *fakeGraph) AllAliases() (map[string][]string, error) {
	return g.aliases, nil
}

func fullProps(overrides map[string]string) []models.Property {
	base := map[string]string{
		"type":    "note",
		"title":   "Doc",
		"tags":    "alpha",
		"created": "2025-01-15",
		"updated": "2025-01-20",
		"author":  "alice",
	}
	for k, v := range overrides {
		base[k] = v
	}
	props := make([]models.Property, 0, len(base))
	for _, key := range []string{"type", "title", "tags", "created", "updated", "author"} {
		if base[key] != "" {
			props = append(props, models.Property{Key: key, Value: base[key]})
		}
	}
	return props
}

func TestStructuralMetadata_AllPresent(t *testing.T) {
	node := &models.Node{ID: "a.md", Properties: fullProps(nil)}
	f := StructuralMetadata{}.Check(node, nil)
	if len(f.Errors) != 0 {
		t.Errorf("errors = %v, want none", f.Errors)
	}
}

func TestStructuralMetadata_MissingProperties(t *testing.T) {
	node := &models.Node{ID: "a.md", Properties: fullProps(map[string]string{"author": "", "tags": ""})}
	f := StructuralMetadata{}.Check(node, nil)
	if len(f.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", f.Errors)
	}
	if f.Errors[0] != "Missing required property: tags" {
		t.Errorf("errors[0] = %q", f.Errors[0])
	}
	if f.Errors[1] != "Missing required property: author" {
		t.Errorf("errors[1] = %q", f.Errors[1])
	}
}

func TestStructuralMetadata_InvalidTimestamp(t *testing.T) {
	node := &models.Node{ID: "a.md", Properties: fullProps(map[string]string{"created": "yesterday"})}
	f := StructuralMetadata{}.Check(node, nil)
	if len(f.Errors) != 1 || f.Errors[0] != "Invalid timestamp for created: yesterday" {
		t.Errorf("errors = %v", f.Errors)
	}
}

func TestStructuralMetadata_AcceptedLayouts(t *testing.T) {
	for _, ts := range []string{"2025-01-15", "2025-01-15 10:30:00", "2025-01-15T10:30:00", "2025-01-15T10:30:00Z"} {
		node := &models.Node{ID: "a.md", Properties: fullProps(map[string]string{"updated": ts})}
		f := StructuralMetadata{}.Check(node, nil)
		if len(f.Errors) != 0 {
			t.Errorf("timestamp %q rejected: %v", ts, f.Errors)
		}
	}
}

func TestLinkIntegrity_BrokenLink(t *testing.T) {
	g := &fakeGraph{nodes: map[string]*models.Node{}}
	node := &models.Node{ID: "a.md", Links: models.Links{Outbound: []string{"gone.md"}}}
	f := LinkIntegrity{}.Check(node, g)
	if len(f.Errors) != 1 || f.Errors[0] != "Broken link: gone.md" {
		t.Errorf("errors = %v", f.Errors)
	}
}

func TestLinkIntegrity_AsymmetricWarning(t *testing.T) {
	g := &fakeGraph{nodes: map[string]*models.Node{
		"b.md": {ID: "b.md"}, // no inbound recorded
	}}
	node := &models.Node{ID: "a.md", Links: models.Links{Outbound: []string{"b.md"}}}
	f := LinkIntegrity{}.Check(node, g)
	if len(f.Errors) != 0 {
		t.Errorf("errors = %v, want none", f.Errors)
	}
	if len(f.Warnings) != 1 || f.Warnings[0] != "Asymmetric link: b.md" {
		t.Errorf("warnings = %v", f.Warnings)
	}
}

func TestLinkIntegrity_Reciprocated(t *testing.T) {
	g := &fakeGraph{nodes: map[string]*models.Node{
		"b.md": {ID: "b.md", Links: models.Links{Inbound: []string{"a.md"}}},
	}}
	node := &models.Node{ID: "a.md", Links: models.Links{Outbound: []string{"b.md"}}}
	f := LinkIntegrity{}.Check(node, g)
	if len(f.Errors) != 0 || len(f.Warnings) != 0 {
		t.Errorf("findings = %+v, want clean", f)
	}
}

func TestTagFormat_Invalid(t *testing.T) {
	node := &models.Node{ID: "a.md", Tags: []string{"Crypto", "valid-tag", "has space"}}
	f := TagFormat{}.Check(node, nil)
	if len(f.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", f.Errors)
	}
	if f.Errors[0] != "Invalid tag format: Crypto" {
		t.Errorf("errors[0] = %q", f.Errors[0])
	}
}

func TestHeadingHierarchy_ExactlyOneTopLevel(t *testing.T) {
	node := &models.Node{ID: "a.md", Headings: []models.Heading{
		{Level: 2, Text: "Sub"},
	}}
	f := HeadingHierarchy{}.Check(node, nil)
	if len(f.Errors) != 1 || f.Errors[0] != "Expected exactly one top-level heading, found 0" {
		t.Errorf("errors = %v", f.Errors)
	}
}

func TestHeadingHierarchy_LevelJump(t *testing.T) {
	node := &models.Node{ID: "a.md", Headings: []models.Heading{
		{Level: 1, Text: "Top"},
		{Level: 3, Text: "Deep"},
	}}
	f := HeadingHierarchy{}.Check(node, nil)
	if len(f.Errors) != 1 || f.Errors[0] != "Heading level jumps from 1 to 3: Deep" {
		t.Errorf("errors = %v", f.Errors)
	}
}

func TestHeadingHierarchy_Valid(t *testing.T) {
	node := &models.Node{ID: "a.md", Headings: []models.Heading{
		{Level: 1, Text: "Top"},
		{Level: 2, Text: "Sub"},
		{Level: 3, Text: "Deep"},
		{Level: 2, Text: "Back up"},
	}}
	f := HeadingHierarchy{}.Check(node, nil)
	if len(f.Errors) != 0 {
		t.Errorf("errors = %v, want none", f.Errors)
	}
}

func TestFreshness_StaleDashboard(t *testing.T) {
	r := NewFreshness(24 * time.Hour)
	r.now = func() time.Time { return time.Date(2025, 1, 22, 12, 0, 0, 0, time.UTC) }

	node := &models.Node{
		ID:         "dash.md",
		Kind:       models.KindDashboard,
		Properties: fullProps(map[string]string{"type": "dashboard", "updated": "2025-01-20"}),
	}
	f := r.Check(node, nil)
	if len(f.Warnings) != 1 || !strings.HasPrefix(f.Warnings[0], "Dashboard is stale: ") {
		t.Errorf("warnings = %v", f.Warnings)
	}
}

func TestFreshness_FreshDashboard(t *testing.T) {
	r := NewFreshness(24 * time.Hour)
	r.now = func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) }

	node := &models.Node{
		ID:         "dash.md",
		Kind:       models.KindDashboard,
		Properties: fullProps(map[string]string{"type": "dashboard", "updated": "2025-01-20"}),
	}
	f := r.Check(node, nil)
	if len(f.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", f.Warnings)
	}
}

func TestFreshness_IgnoresNonDashboards(t *testing.T) {
	r := NewFreshness(time.Hour)
	node := &models.Node{
		ID:         "a.md",
		Kind:       models.KindNote,
		Properties: fullProps(map[string]string{"updated": "2001-01-01"}),
	}
	f := r.Check(node, nil)
	if len(f.Warnings) != 0 {
		t.Errorf("warnings = %v, want none for non-dashboard", f.Warnings)
	}
}

func TestNeighborConvergence_SuggestsPeers(t *testing.T) {
	g := &fakeGraph{tagPeers: map[string][]string{
		"a": {"peer.md"},
		"b": {"peer.md"},
		"c": {"peer.md"},
	}}
	node := &models.Node{ID: "self.md", Tags: []string{"a", "b", "c"}}
	f := NeighborConvergence{}.Check(node, g)
	if len(f.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", f.Warnings)
	}
	if !strings.Contains(f.Warnings[0], "peer.md") {
		t.Errorf("warning = %q, should name peer.md", f.Warnings[0])
	}
}

func TestNeighborConvergence_SkipsLinkedNodes(t *testing.T) {
	g := &fakeGraph{tagPeers: map[string][]string{
		"a": {"peer.md"}, "b": {"peer.md"}, "c": {"peer.md"},
	}}
	node := &models.Node{
		ID:    "self.md",
		Tags:  []string{"a", "b", "c"},
		Links: models.Links{Outbound: []string{"somewhere.md"}},
	}
	f := NeighborConvergence{}.Check(node, g)
	if len(f.Warnings) != 0 {
		t.Errorf("warnings = %v, want none when outbound links exist", f.Warnings)
	}
}

func TestNeighborConvergence_BelowThreshold(t *testing.T) {
	g := &fakeGraph{tagPeers: map[string][]string{
		"a": {"peer.md"}, "b": {"peer.md"},
	}}
	node := &models.Node{ID: "self.md", Tags: []string{"a", "b"}}
	f := NeighborConvergence{}.Check(node, g)
	if len(f.Warnings) != 0 {
		t.Errorf("warnings = %v, want none below shared-tag threshold", f.Warnings)
	}
}

func TestAliasConvergence_CaseInsensitiveConflict(t *testing.T) {
	r := NewAliasConvergence(false, false, 0)
	g := &fakeGraph{aliases: map[string][]string{
		"other.md": {"api guide"},
	}}
	node := &models.Node{ID: "self.md", Aliases: []string{"API Guide"}}
	f := r.Check(node, g)
	if len(f.Errors) != 0 {
		t.Errorf("errors = %v, want none for a single peer", f.Errors)
	}
	if len(f.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", f.Warnings)
	}
	if !strings.Contains(f.Warnings[0], "other.md") || !strings.Contains(f.Warnings[0], "consider merging") {
		t.Errorf("warning = %q", f.Warnings[0])
	}
}

func TestAliasConvergence_MultiPeerError(t *testing.T) {
	r := NewAliasConvergence(false, false, 0)
	g := &fakeGraph{aliases: map[string][]string{
		"one.md": {"api guide"},
		"two.md": {"The API Guide"},
	}}
	node := &models.Node{ID: "self.md", Aliases: []string{"API Guide"}}
	f := r.Check(node, g)
	if len(f.Errors) != 1 {
		t.Fatalf("errors = %v, want 1", f.Errors)
	}
	if !strings.Contains(f.Errors[0], "one.md, two.md") {
		t.Errorf("error = %q, should list both peers sorted", f.Errors[0])
	}
}

func TestAliasConvergence_DuplicateWithinNode(t *testing.T) {
	r := NewAliasConvergence(false, false, 0)
	node := &models.Node{ID: "self.md", Aliases: []string{"API Guide", "api guide"}}
	f := r.Check(node, &fakeGraph{})
	found := false
	for _, e := range f.Errors {
		if e == "Duplicate alias: api guide" {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want duplicate alias error", f.Errors)
	}
}

func TestAliasConvergence_QualityChecks(t *testing.T) {
	r := NewAliasConvergence(false, false, 0)
	node := &models.Node{ID: "self.md", Aliases: []string{"ab", "Valid Name", "bad/chars"}}
	f := r.Check(node, &fakeGraph{})

	var lengthErr, charsetErr bool
	for _, e := range f.Errors {
		if strings.HasPrefix(e, "Alias length out of range") {
			lengthErr = true
		}
		if strings.HasPrefix(e, "Alias contains invalid characters") {
			charsetErr = true
		}
	}
	if !lengthErr {
		t.Errorf("errors = %v, want length error for %q", f.Errors, "ab")
	}
	if !charsetErr {
		t.Errorf("errors = %v, want charset error for %q", f.Errors, "bad/chars")
	}
}

func TestAliasConvergence_InconsistentCasing(t *testing.T) {
	r := NewAliasConvergence(false, false, 0)
	node := &models.Node{ID: "self.md", Aliases: []string{"Api guide name"}}
	f := r.Check(node, &fakeGraph{})
	found := false
	for _, w := range f.Warnings {
		if w == "Inconsistent title casing: Api guide name" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want casing warning", f.Warnings)
	}
}

func TestAliasConvergence_PartialMatching(t *testing.T) {
	r := NewAliasConvergence(false, true, 0.85)
	g := &fakeGraph{aliases: map[string][]string{
		"other.md": {"API Guides"},
	}}
	node := &models.Node{ID: "self.md", Aliases: []string{"API Guide"}}
	f := r.Check(node, g)
	if len(f.Warnings) != 1 {
		t.Errorf("warnings = %v, want similarity-based conflict", f.Warnings)
	}
}

func TestAliasNormalize(t *testing.T) {
	r := NewAliasConvergence(false, false, 0)
	cases := map[string]string{
		"The API Guide":  "api guide",
		"API   Guide":    "api guide",
		"api-guide":      "api guide",
		"Setup Notes":    "setup",
		"Reference Docs": "reference",
	}
	for in, want := range cases {
		if got := r.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
