package graph

import (
	"log/slog"
	"time"

	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/parser"
	"github.com/starford/gebo/internal/storage"
)

// BuildNode converts a raw vault document into a graph node. Health starts
// clean; the validation pipeline refreshes it afterwards.
func BuildNode(path string, data []byte, modTime time.Time) (*models.Node, error) {
	doc, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &models.Node{
		ID:         path,
		Kind:       models.ParseKind(doc.KindHint),
		Title:      doc.Title,
		Checksum:   storage.Checksum(data),
		Properties: doc.Properties,
		Headings:   doc.Headings,
		Tags:       doc.Tags,
		Aliases:    doc.Aliases,
		Links: models.Links{
			Outbound: doc.Links,
			External: doc.External,
		},
		Dependencies: models.Dependencies{
			Requires:    doc.Requires,
			TemplateRef: doc.Template,
		},
		Health: models.Health{
			Score:    100,
			Errors:   []string{},
			Warnings: []string{},
		},
		UpdatedAt: modTime,
	}, nil
}

// IngestFile parses data and upserts the resulting node.
func IngestFile(db Store, path string, data []byte, modTime time.Time) error {
	node, err := BuildNode(path, data, modTime)
	if err != nil {
		return err
	}
	return db.AddNode(node)
}

// Sync walks the vault and brings the graph up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the graph
//
// It returns the ids that were ingested so the caller can schedule
// validation over them.
func Sync(db Store, store storage.Provider, logger *slog.Logger) ([]string, error) {
	metas, err := store.List("")
	if err != nil {
		return nil, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var ingested []string
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IngestFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: ingest failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: ingested", slog.String("path", m.Path))
			ingested = append(ingested, m.Path)
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNode(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return ingested, nil
}
