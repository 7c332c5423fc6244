package graph

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/storage"
)

func TestBuildNode(t *testing.T) {
	content := []byte("---\ntype: documentation\ntitle: Guide\ntags:\n  - api\naliases:\n  - API Guide\nrequires:\n  - base.md\ntemplate: tmpl.md\n---\n# Guide\nSee [[other.md]] and https://example.com/ref\n")
	node, err := BuildNode("guide.md", content, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if node.ID != "guide.md" {
		t.Errorf("id = %q", node.ID)
	}
	if node.Kind != models.KindDocumentation {
		t.Errorf("kind = %q", node.Kind)
	}
	if node.Title != "Guide" {
		t.Errorf("title = %q", node.Title)
	}
	if node.Checksum != storage.Checksum(content) {
		t.Error("checksum mismatch")
	}
	if len(node.Links.Outbound) != 1 || node.Links.Outbound[0] != "other.md" {
		t.Errorf("outbound = %v", node.Links.Outbound)
	}
	if len(node.Links.External) != 1 {
		t.Errorf("external = %v", node.Links.External)
	}
	if len(node.Dependencies.Requires) != 1 || node.Dependencies.Requires[0] != "base.md" {
		t.Errorf("requires = %v", node.Dependencies.Requires)
	}
	if node.Dependencies.TemplateRef != "tmpl.md" {
		t.Errorf("template = %q", node.Dependencies.TemplateRef)
	}
	if node.Health.Score != 100 {
		t.Errorf("initial score = %d, want 100", node.Health.Score)
	}
}

func TestSync_IngestAndRemoveStale(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.md", "---\ntitle: A\n---\n# A\n")
	write("b.md", "---\ntitle: B\n---\n# B\n")

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}

	ingested, err := Sync(db, store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(ingested) != 2 {
		t.Errorf("ingested = %v, want 2 paths", ingested)
	}

	// Unchanged files are skipped on the next pass.
	ingested, err = Sync(db, store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(ingested) != 0 {
		t.Errorf("ingested = %v, want none on unchanged vault", ingested)
	}

	// A removed file disappears from the graph.
	if err := os.Remove(filepath.Join(dir, "b.md")); err != nil {
		t.Fatal(err)
	}
	if _, err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	if node, _ := db.GetNode("b.md"); node != nil {
		t.Error("b.md should be removed after sync")
	}
	if node, _ := db.GetNode("a.md"); node == nil {
		t.Error("a.md should survive")
	}
}

func TestSync_ChangedFileReingested(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	path := filepath.Join(dir, "a.md")
	if err := os.WriteFile(path, []byte("---\ntitle: A\n---\n# A\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("---\ntitle: A2\n---\n# A2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ingested, err := Sync(db, store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(ingested) != 1 || ingested[0] != "a.md" {
		t.Errorf("ingested = %v, want [a.md]", ingested)
	}

	node, err := db.GetNode("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if node.Title != "A2" {
		t.Errorf("title = %q, want A2", node.Title)
	}
}
