package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// sourceKeySeparator joins the parts of a source key.
const sourceKeySeparator = "|"

// documentPrefixLength is the number of hex characters kept from the key hash.
const documentPrefixLength = 32

// BuildSourceKey derives the stable identity of the document a job describes:
// sourceType|teamId|apiPath, plus |resourceId when the job has one.
func BuildSourceKey(job *domain.IndexJob) string {
	parts := []string{
		job.SourceType.String(),
		strconv.FormatInt(job.TeamID, 10),
		job.APIPath,
	}
	if job.HasResource() {
		parts = append(parts, job.ResourceID)
	}
	return strings.Join(parts, sourceKeySeparator)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of content.
func SHA256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// DocumentPrefix namespaces the chunk IDs of a source key.
func DocumentPrefix(sourceKey string) string {
	return SHA256Hex(sourceKey)[:documentPrefixLength]
}

// ToVectorRecords assembles one record per chunk. Chunk i gets the ID prefix-i.
// Every metadata key is present; unknown values are empty strings.
func ToVectorRecords(
	job *domain.IndexJob,
	sourceKey, prefix string,
	chunks []string,
	info domain.DocumentInfo,
	now time.Time,
) []domain.VectorRecord {
	if len(chunks) == 0 {
		return nil
	}

	pageID := info.PageID
	if pageID == "" && job.SourceType == domain.SourceNotionPage {
		pageID = job.ResourceID
	}
	databaseID := info.DatabaseID
	if databaseID == "" && (job.SourceType == domain.SourceNotionDatabase ||
		job.SourceType == domain.SourceNotionDatabaseQuery) {
		databaseID = job.ResourceID
	}

	base := map[string]string{
		domain.MetaTeamID:         strconv.FormatInt(job.TeamID, 10),
		domain.MetaSourceType:     job.SourceType.String(),
		domain.MetaAPIPath:        job.APIPath,
		domain.MetaSourceKey:      sourceKey,
		domain.MetaResourceID:     job.ResourceID,
		domain.MetaTitle:          info.Title,
		domain.MetaPageID:         pageID,
		domain.MetaParentID:       info.ParentID,
		domain.MetaDatabaseID:     databaseID,
		domain.MetaLastEditedTime: normalizeTimestamp(info.LastEditedTime),
		domain.MetaChunkCount:     strconv.Itoa(len(chunks)),
		domain.MetaUpdatedAt:      now.UTC().Format(time.RFC3339),
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		meta := make(map[string]string, len(base)+2)
		for k, v := range base {
			meta[k] = v
		}
		meta[domain.MetaPosition] = strconv.Itoa(i)
		meta[domain.MetaDepth] = strconv.Itoa(DepthHint(chunk))

		records[i] = domain.VectorRecord{
			ID:       domain.ChunkID(prefix, i),
			Text:     chunk,
			Metadata: meta,
		}
	}
	return records
}

// normalizeTimestamp rewrites an RFC3339 timestamp as UTC at second precision,
// the form filter bounds use, so string comparison orders them. Anything
// unparsable becomes "".
func normalizeTimestamp(raw string) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// DepthHint estimates nesting depth as the longest leading-space run of any
// line divided by two. Advisory only.
func DepthHint(chunk string) int {
	maxRun := 0
	for _, line := range strings.Split(chunk, "\n") {
		run := len(line) - len(strings.TrimLeft(line, " "))
		if run > maxRun {
			maxRun = run
		}
	}
	return maxRun / 2
}
