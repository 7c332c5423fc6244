package graph

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gebo-graph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newNode(id string) *models.Node {
	return &models.Node{
		ID:       id,
		Kind:     models.KindNote,
		Title:    id,
		Checksum: "cs-" + id,
		Health:   models.Health{Score: 100, Errors: []string{}, Warnings: []string{}},
	}
}

func TestAddNode_RoundTrip(t *testing.T) {
	db := testDB(t)

	n := newNode("a.md")
	n.Tags = []string{"alpha", "beta"}
	n.Aliases = []string{"Alpha Doc"}
	n.Properties = []models.Property{{Key: "type", Value: "note"}, {Key: "title", Value: "a.md"}}
	n.Links.Outbound = []string{"b.md"}
	n.Dependencies.Requires = []string{"c.md"}

	if err := db.AddNode(n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	got, err := db.GetNode("a.md")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got == nil {
		t.Fatal("node not found after AddNode")
	}
	if got.Title != "a.md" || got.Checksum != "cs-a.md" {
		t.Errorf("got = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "alpha" {
		t.Errorf("tags = %v", got.Tags)
	}
	if len(got.Properties) != 2 || got.Properties[0].Key != "type" {
		t.Errorf("properties = %v", got.Properties)
	}
	if len(got.Links.Outbound) != 1 || got.Links.Outbound[0] != "b.md" {
		t.Errorf("outbound = %v", got.Links.Outbound)
	}
	if len(got.Dependencies.Requires) != 1 || got.Dependencies.Requires[0] != "c.md" {
		t.Errorf("requires = %v", got.Dependencies.Requires)
	}
}

func TestAddNode_Idempotent(t *testing.T) {
	db := testDB(t)

	n := newNode("a.md")
	n.Links.Outbound = []string{"b.md", "c.md"}
	if err := db.AddNode(n); err != nil {
		t.Fatal(err)
	}
	if err := db.AddNode(n); err != nil {
		t.Fatalf("second AddNode should succeed: %v", err)
	}

	m, err := db.CalculateGraphMetrics()
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalNodes != 1 {
		t.Errorf("total nodes = %d, want 1", m.TotalNodes)
	}
	if m.TotalEdges != 2 {
		t.Errorf("total edges = %d, want 2", m.TotalEdges)
	}
}

func TestAddNode_ReingestDropsStaleEdges(t *testing.T) {
	db := testDB(t)

	n := newNode("a.md")
	n.Links.Outbound = []string{"b.md"}
	if err := db.AddNode(n); err != nil {
		t.Fatal(err)
	}

	n.Links.Outbound = []string{"c.md"}
	if err := db.AddNode(n); err != nil {
		t.Fatal(err)
	}

	neighbors, err := db.GetNeighbors("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(neighbors) != 1 || neighbors[0] != "c.md" {
		t.Errorf("neighbors = %v, want [c.md]", neighbors)
	}
}

func TestGetNode_Missing(t *testing.T) {
	db := testDB(t)
	got, err := db.GetNode("nope.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got = %+v, want nil", got)
	}
}

func TestGetNode_InboundAndRequiredBy(t *testing.T) {
	db := testDB(t)

	a := newNode("a.md")
	a.Links.Outbound = []string{"b.md"}
	a.Dependencies.Requires = []string{"b.md"}
	if err := db.AddNode(a); err != nil {
		t.Fatal(err)
	}
	if err := db.AddNode(newNode("b.md")); err != nil {
		t.Fatal(err)
	}

	b, err := db.GetNode("b.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Links.Inbound) != 1 || b.Links.Inbound[0] != "a.md" {
		t.Errorf("inbound = %v, want [a.md]", b.Links.Inbound)
	}
	if len(b.Dependencies.RequiredBy) != 1 || b.Dependencies.RequiredBy[0] != "a.md" {
		t.Errorf("required_by = %v, want [a.md]", b.Dependencies.RequiredBy)
	}
}

func TestAddEdge_DuplicateConflict(t *testing.T) {
	db := testDB(t)

	e := models.Edge{Source: "a.md", Target: "b.md", Type: models.EdgeBacklink}
	if err := db.AddEdge(e); err != nil {
		t.Fatalf("first AddEdge: %v", err)
	}
	err := db.AddEdge(e)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate edge error = %v, want ErrConflict", err)
	}
}

func TestDeleteNode_RemovesIncidentEdges(t *testing.T) {
	db := testDB(t)

	a := newNode("a.md")
	a.Links.Outbound = []string{"b.md"}
	if err := db.AddNode(a); err != nil {
		t.Fatal(err)
	}
	b := newNode("b.md")
	b.Links.Outbound = []string{"a.md"}
	if err := db.AddNode(b); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteNode("b.md"); err != nil {
		t.Fatal(err)
	}

	m, err := db.CalculateGraphMetrics()
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalNodes != 1 {
		t.Errorf("total nodes = %d, want 1", m.TotalNodes)
	}
	if m.TotalEdges != 0 {
		t.Errorf("total edges = %d, want 0", m.TotalEdges)
	}
}

func TestStripOutboundRef(t *testing.T) {
	db := testDB(t)

	a := newNode("a.md")
	a.Links.Outbound = []string{"b.md", "c.md"}
	if err := db.AddNode(a); err != nil {
		t.Fatal(err)
	}

	if err := db.StripOutboundRef("a.md", "b.md"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNode("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Links.Outbound) != 1 || got.Links.Outbound[0] != "c.md" {
		t.Errorf("outbound = %v, want [c.md]", got.Links.Outbound)
	}
	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 0 {
		t.Errorf("backlinks of b.md = %v, want none", bl)
	}
}

func TestStripOutboundRef_MissingHolder(t *testing.T) {
	db := testDB(t)
	if err := db.StripOutboundRef("gone.md", "b.md"); err != nil {
		t.Errorf("missing holder should be a no-op, got %v", err)
	}
}

func TestRelinkOutboundRef_Idempotent(t *testing.T) {
	db := testDB(t)

	if err := db.AddNode(newNode("a.md")); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := db.RelinkOutboundRef("a.md", "b.md"); err != nil {
			t.Fatalf("relink #%d: %v", i+1, err)
		}
	}

	got, err := db.GetNode("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Links.Outbound) != 1 || got.Links.Outbound[0] != "b.md" {
		t.Errorf("outbound = %v, want [b.md]", got.Links.Outbound)
	}
	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 1 || bl[0] != "a.md" {
		t.Errorf("backlinks = %v, want [a.md]", bl)
	}
}

func TestUpdateHealth(t *testing.T) {
	db := testDB(t)
	if err := db.AddNode(newNode("a.md")); err != nil {
		t.Fatal(err)
	}

	h := models.Health{
		Score:           70,
		Errors:          []string{"Broken link: x.md"},
		Warnings:        []string{"Asymmetric link: y.md"},
		LastValidatedAt: time.Now().UTC(),
	}
	if err := db.UpdateHealth("a.md", h); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNode("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Health.Score != 70 {
		t.Errorf("score = %d, want 70", got.Health.Score)
	}
	if len(got.Health.Errors) != 1 || len(got.Health.Warnings) != 1 {
		t.Errorf("health = %+v", got.Health)
	}
	if got.Health.LastValidatedAt.IsZero() {
		t.Error("last validated at not persisted")
	}
}

func TestRemoveDependencyRef_PenaltyAndWarning(t *testing.T) {
	db := testDB(t)

	n := newNode("a.md")
	n.Dependencies.Requires = []string{"gone.md", "keep.md"}
	if err := db.AddNode(n); err != nil {
		t.Fatal(err)
	}

	if err := db.RemoveDependencyRef("a.md", "gone.md"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNode("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dependencies.Requires) != 1 || got.Dependencies.Requires[0] != "keep.md" {
		t.Errorf("requires = %v, want [keep.md]", got.Dependencies.Requires)
	}
	if got.Health.Score != 90 {
		t.Errorf("score = %d, want 90", got.Health.Score)
	}
	want := "Missing dependency: gone.md"
	if len(got.Health.Warnings) != 1 || got.Health.Warnings[0] != want {
		t.Errorf("warnings = %v, want [%s]", got.Health.Warnings, want)
	}
}

func TestRemoveDependencyRef_ScoreClamped(t *testing.T) {
	db := testDB(t)

	n := newNode("a.md")
	n.Health.Score = 5
	n.Dependencies.Requires = []string{"gone.md"}
	if err := db.AddNode(n); err != nil {
		t.Fatal(err)
	}

	if err := db.RemoveDependencyRef("a.md", "gone.md"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNode("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Health.Score != 0 {
		t.Errorf("score = %d, want 0 (clamped)", got.Health.Score)
	}
}
