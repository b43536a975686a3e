package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// EscapeLiteral makes value safe to embed between single quotes in a
// filter expression. Quotes are doubled.
func EscapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// BuildFilter converts query options into a store filter expression.
// Unset options contribute no clause; no clauses yields an empty filter.
func BuildFilter(opts domain.QueryOptions) string {
	var clauses []string

	eq := func(field, value string) {
		if value == "" {
			return
		}
		clauses = append(clauses, field+" == '"+EscapeLiteral(value)+"'")
	}

	if opts.TeamID != 0 {
		eq(domain.MetaTeamID, strconv.FormatInt(opts.TeamID, 10))
	}
	eq(domain.MetaSourceType, string(opts.SourceType))
	eq(domain.MetaAPIPath, opts.APIPath)
	eq(domain.MetaParentID, opts.ParentID)
	eq(domain.MetaPageID, opts.PageID)

	if !opts.LastEditedAfter.IsZero() {
		ts := opts.LastEditedAfter.UTC().Format(time.RFC3339)
		clauses = append(clauses, domain.MetaLastEditedTime+" >= '"+EscapeLiteral(ts)+"'")
	}

	return strings.Join(clauses, " AND ")
}
