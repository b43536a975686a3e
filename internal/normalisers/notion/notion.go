package notion

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Option configures a Notion normaliser.
type Option func(*settings)

// settings are shared by every Notion normaliser.
type settings struct {
	maxLength int
	maxDepth  int
}

// WithMaxLength bounds the normalised text.
func WithMaxLength(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// WithMaxDepth lowers the recursion bound. It can never exceed domain.MaxDepthLimit.
func WithMaxDepth(n int) Option {
	return func(s *settings) {
		if n > 0 && n < domain.MaxDepthLimit {
			s.maxDepth = n
		}
	}
}

// FromConfig maps pipeline configuration onto normaliser options.
func FromConfig(cfg domain.PipelineConfig) []Option {
	return []Option{WithMaxLength(cfg.MaxNormalizedLength), WithMaxDepth(cfg.MaxDepth)}
}

func newSettings(opts []Option) settings {
	s := settings{
		maxLength: domain.DefaultMaxNormalizedLength,
		maxDepth:  domain.MaxDepthLimit,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) writer() *writer {
	return newWriter(s.maxLength)
}

func (s settings) walker(w *writer) *blockWalker {
	return &blockWalker{w: w, maxDepth: s.maxDepth}
}

// All returns one normaliser per Notion source type.
func All(opts ...Option) []driven.Normaliser {
	return []driven.Normaliser{
		NewPage(opts...),
		NewDatabase(opts...),
		NewDatabaseQuery(opts...),
		NewBlockChildren(opts...),
		NewSearch(opts...),
	}
}

// normaliseFunc is the body shared by every normaliser.
type normaliseFunc func(payload map[string]any, job *domain.IndexJob) (*writer, domain.DocumentInfo)

func run(_ context.Context, job *domain.IndexJob, fn normaliseFunc) (*driven.NormaliseResult, error) {
	if job == nil {
		return nil, domain.ErrInvalidInput
	}
	if len(job.Payload) == 0 {
		return &driven.NormaliseResult{}, nil
	}

	w, info := fn(job.Payload, job)
	return &driven.NormaliseResult{
		Text:      w.String(),
		Info:      info,
		Truncated: w.truncated,
	}, nil
}

// latest returns the later of two Notion timestamps. Notion emits a fixed
// ISO 8601 layout, so lexical order is chronological.
func latest(a, b string) string {
	if b > a {
		return b
	}
	return a
}
