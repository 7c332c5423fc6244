// Package storage provides read access to the Markdown vault on disk.
package storage

import "github.com/starford/gebo/internal/models"

// Provider abstracts the vault file source. The engine never writes
// documents; authoring happens in external editors.
type Provider interface {
	// Read returns the raw bytes of a vault file by relative path.
	Read(path string) ([]byte, error)
	// List walks dir (relative to the vault root, "" for all) and returns
	// metadata for every Markdown file found.
	List(dir string) ([]models.DocMeta, error)
}
