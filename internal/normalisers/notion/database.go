package notion

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure DatabaseNormaliser implements the interface.
var _ driven.Normaliser = (*DatabaseNormaliser)(nil)

// DatabaseNormaliser handles databases.retrieve responses.
type DatabaseNormaliser struct {
	settings
}

// NewDatabase creates a database normaliser.
func NewDatabase(opts ...Option) *DatabaseNormaliser {
	return &DatabaseNormaliser{settings: newSettings(opts)}
}

// SourceType returns the source type this normaliser handles.
func (n *DatabaseNormaliser) SourceType() domain.SourceType {
	return domain.SourceNotionDatabase
}

// Normalise renders the title, description and property schema of a database.
func (n *DatabaseNormaliser) Normalise(ctx context.Context, job *domain.IndexJob) (*driven.NormaliseResult, error) {
	return run(ctx, job, n.render)
}

func (n *DatabaseNormaliser) render(db map[string]any, job *domain.IndexJob) (*writer, domain.DocumentInfo) {
	id := asString(db["id"])
	if id == "" {
		id = job.ResourceID
	}
	parentID, _ := parentInfo(db)
	info := domain.DocumentInfo{
		Title:          databaseTitle(db),
		ParentID:       parentID,
		DatabaseID:     id,
		LastEditedTime: asString(db["last_edited_time"]),
	}

	w := n.writer()

	w.section()
	w.heading(levelTitle, 0, id, info.Title)
	w.line(1, id, richText(db["description"]))

	if props := asMap(db["properties"]); len(props) > 0 {
		w.section()
		for _, name := range sortedKeys(props) {
			prop := asMap(props[name])
			if prop == nil {
				continue
			}
			w.raw(1, asString(prop["id"]), schemaLine(name, prop))
		}
	}

	return w, info
}
