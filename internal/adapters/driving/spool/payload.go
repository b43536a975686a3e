// Package spool turns payload files into indexing jobs.
//
// A spool directory is laid out as
//
//	<root>/<teamId>/<sourceType>/<resourceId>.json
//
// (or .yaml/.yml). Writing a file submits an IndexJob; removing it submits
// a DeleteJob for the same resource. The same file format is read by the
// CLI's one-shot index command.
package spool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// envelopeKey marks a file that carries job fields next to its payload.
const envelopeKey = "payload"

// IsPayloadFile returns true if the path has a supported extension and is
// not a hidden or editor temp file.
func IsPayloadFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// ReadJob decodes a payload file into an IndexJob.
//
// The file is either a bare API response, or an envelope with source_type,
// team_id, api_path, resource_id and payload keys. Fields missing from the
// file are taken from defaults. The API path falls back to the source
// type's default and the resource ID to the payload's "id".
func ReadJob(path string, defaults domain.IndexJob) (domain.IndexJob, error) {
	raw, err := decodeFile(path)
	if err != nil {
		return domain.IndexJob{}, err
	}

	job := defaults
	job.Payload = raw

	if inner, ok := raw[envelopeKey].(map[string]any); ok {
		job.Payload = inner
		if s, ok := raw["source_type"].(string); ok && s != "" {
			job.SourceType = domain.SourceType(s)
		}
		if id, ok := toInt64(raw["team_id"]); ok {
			job.TeamID = id
		}
		if s, ok := raw["api_path"].(string); ok && s != "" {
			job.APIPath = s
		}
		if s, ok := raw["resource_id"].(string); ok && s != "" {
			job.ResourceID = s
		}
	}

	st, err := domain.ParseSourceType(string(job.SourceType))
	if err != nil {
		return domain.IndexJob{}, fmt.Errorf("%s: %w", path, err)
	}
	job.SourceType = st
	if job.APIPath == "" {
		job.APIPath = st.DefaultAPIPath()
	}
	if job.ResourceID == "" {
		if id, ok := job.Payload["id"].(string); ok {
			job.ResourceID = id
		}
	}
	if job.TeamID <= 0 {
		return domain.IndexJob{}, fmt.Errorf("%w: %s: team id is required", domain.ErrInvalidInput, path)
	}
	return job, nil
}

// decodeFile reads a JSON or YAML object. YAML is normalised through JSON
// so numbers and nested maps have the same types either way.
func decodeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, path, err)
		}
		normalised, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, path, err)
		}
		if err := json.Unmarshal(normalised, &out); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, path, err)
		}
	default:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, path, err)
		}
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s: empty document", domain.ErrInvalidInput, path)
	}
	return out, nil
}

// location is a payload file's position in the spool layout.
type location struct {
	TeamID     int64
	SourceType domain.SourceType
	ResourceID string
}

// parseLocation reads team, source type and resource from a path relative
// to the spool root.
func parseLocation(rel string) (location, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return location{}, fmt.Errorf("%w: %q is not <team>/<source_type>/<resource>", domain.ErrInvalidInput, rel)
	}
	teamID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || teamID <= 0 {
		return location{}, fmt.Errorf("%w: team id %q", domain.ErrInvalidInput, parts[0])
	}
	st, err := domain.ParseSourceType(parts[1])
	if err != nil {
		return location{}, err
	}
	resource := strings.TrimSuffix(parts[2], filepath.Ext(parts[2]))
	if resource == "" {
		return location{}, fmt.Errorf("%w: empty resource id in %q", domain.ErrInvalidInput, rel)
	}
	return location{TeamID: teamID, SourceType: st, ResourceID: resource}, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}
