package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/adapters/driven/vector/filter"
	"github.com/custodia-labs/docsync/internal/core/domain"
)

func TestBuildSourceKey(t *testing.T) {
	tests := []struct {
		name string
		job  domain.IndexJob
		want string
	}{
		{
			name: "with resource",
			job: domain.IndexJob{
				SourceType: domain.SourceNotionPage,
				TeamID:     42,
				APIPath:    "pages.retrieve",
				ResourceID: "abc",
			},
			want: "notion_page|42|pages.retrieve|abc",
		},
		{
			name: "without resource",
			job: domain.IndexJob{
				SourceType: domain.SourceNotionSearch,
				TeamID:     7,
				APIPath:    "search",
			},
			want: "notion_search|7|search",
		},
		{
			name: "blank resource is omitted",
			job: domain.IndexJob{
				SourceType: domain.SourceNotionSearch,
				TeamID:     7,
				APIPath:    "search",
				ResourceID: "   ",
			},
			want: "notion_search|7|search",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSourceKey(&tt.job))
		})
	}
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		SHA256Hex(""))
	assert.Len(t, SHA256Hex("hello"), 64)
	assert.Equal(t, SHA256Hex("hello"), SHA256Hex("hello"))
	assert.NotEqual(t, SHA256Hex("hello"), SHA256Hex("hello "))
}

func TestDocumentPrefix(t *testing.T) {
	key := "notion_page|42|pages.retrieve|abc"
	prefix := DocumentPrefix(key)

	assert.Len(t, prefix, 32)
	assert.True(t, strings.HasPrefix(SHA256Hex(key), prefix))
	assert.NotEqual(t, prefix, DocumentPrefix("notion_page|43|pages.retrieve|abc"))
}

func TestToVectorRecords(t *testing.T) {
	job := &domain.IndexJob{
		SourceType: domain.SourceNotionPage,
		TeamID:     42,
		APIPath:    "pages.retrieve",
		ResourceID: "abc",
	}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	info := domain.DocumentInfo{Title: "Roadmap", ParentID: "root"}

	records := ToVectorRecords(job, "key", "p", []string{"first", "  second\n    nested"}, info, now)
	require.Len(t, records, 2)

	assert.Equal(t, "p-0", records[0].ID)
	assert.Equal(t, "p-1", records[1].ID)
	assert.Equal(t, "second", strings.TrimSpace(strings.Split(records[1].Text, "\n")[0]))

	for _, key := range domain.MetadataKeys() {
		_, ok := records[0].Metadata[key]
		assert.True(t, ok, "missing metadata key %s", key)
	}

	meta := records[1].Metadata
	assert.Equal(t, "42", meta[domain.MetaTeamID])
	assert.Equal(t, "notion_page", meta[domain.MetaSourceType])
	assert.Equal(t, "key", meta[domain.MetaSourceKey])
	assert.Equal(t, "abc", meta[domain.MetaPageID])
	assert.Equal(t, "root", meta[domain.MetaParentID])
	assert.Equal(t, "", meta[domain.MetaDatabaseID])
	assert.Equal(t, "1", meta[domain.MetaPosition])
	assert.Equal(t, "2", meta[domain.MetaChunkCount])
	assert.Equal(t, "2", meta[domain.MetaDepth])
	assert.Equal(t, "2026-03-01T10:00:00Z", meta[domain.MetaUpdatedAt])
}

func TestToVectorRecords_LastEditedTimeMatchesFilterBound(t *testing.T) {
	job := &domain.IndexJob{SourceType: domain.SourceNotionPage, TeamID: 42, APIPath: "pages.retrieve"}
	bound := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	expr, err := filter.Parse(BuildFilter(domain.QueryOptions{LastEditedAfter: bound}))
	require.NoError(t, err)

	tests := []struct {
		edited string
		stored string
		match  bool
	}{
		{"2026-01-01T10:00:00.000Z", "2026-01-01T10:00:00Z", true},
		{"2026-01-01T10:00:00.900Z", "2026-01-01T10:00:00Z", true},
		{"2026-01-01T11:00:00.000+01:00", "2026-01-01T10:00:00Z", true},
		{"2026-01-01T09:59:59.999Z", "2026-01-01T09:59:59Z", false},
		{"2026-01-01T10:00:01.000Z", "2026-01-01T10:00:01Z", true},
		{"", "", false},
		{"yesterday", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.edited, func(t *testing.T) {
			info := domain.DocumentInfo{LastEditedTime: tt.edited}
			records := ToVectorRecords(job, "key", "p", []string{"text"}, info, time.Now())
			require.Len(t, records, 1)

			meta := records[0].Metadata
			assert.Equal(t, tt.stored, meta[domain.MetaLastEditedTime])
			assert.Equal(t, tt.match, expr.Match(meta))
		})
	}
}

func TestToVectorRecords_DatabaseDefaults(t *testing.T) {
	job := &domain.IndexJob{
		SourceType: domain.SourceNotionDatabaseQuery,
		TeamID:     1,
		APIPath:    "databases.query",
		ResourceID: "db1",
	}

	records := ToVectorRecords(job, "key", "p", []string{"row"}, domain.DocumentInfo{}, time.Now())
	require.Len(t, records, 1)
	assert.Equal(t, "db1", records[0].Metadata[domain.MetaDatabaseID])
	assert.Equal(t, "", records[0].Metadata[domain.MetaPageID])
}

func TestToVectorRecords_Empty(t *testing.T) {
	job := &domain.IndexJob{SourceType: domain.SourceNotionPage, TeamID: 1, APIPath: "pages.retrieve"}
	assert.Nil(t, ToVectorRecords(job, "key", "p", nil, domain.DocumentInfo{}, time.Now()))
}

func TestDepthHint(t *testing.T) {
	assert.Equal(t, 0, DepthHint("flat"))
	assert.Equal(t, 1, DepthHint("a\n  b"))
	assert.Equal(t, 3, DepthHint("a\n  b\n      c\n   d"))
}
