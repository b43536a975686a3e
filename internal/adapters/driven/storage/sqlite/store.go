package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// databaseFile is the name of the SQLite file inside the data directory.
const databaseFile = "docsync.db"

// Store owns the docsync database. Each port is served by a thin view
// over the shared handle.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens dataDir/docsync.db and applies pending migrations.
// An empty dataDir means ~/.docsync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docsync", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, databaseFile)

	// WAL lets the repair task read while the dispatcher writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the database file.
func (s *Store) Path() string {
	return s.path
}

// IndexingStateStore persists one row per indexed source key.
func (s *Store) IndexingStateStore() driven.IndexingStateStore {
	return &indexingStateStore{store: s}
}

// RecordStore persists vector records for the hnsw index.
func (s *Store) RecordStore() driven.VectorRecordStore {
	return &recordStore{store: s}
}

// SchedulerStore persists scheduler tasks and their run log.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
// Each file and its version row commit together.
func (s *Store) migrate(fsys embed.FS) error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var applied int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= applied {
			continue
		}
		ddl, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(ddl)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(version int, ddl string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(ddl); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

// indexingStateStore implements driven.IndexingStateStore.
type indexingStateStore struct {
	store *Store
}

var _ driven.IndexingStateStore = (*indexingStateStore)(nil)

const stateColumns = `source_key, source_type, team_id, api_path, resource_id,
	document_prefix, content_hash, chunk_count, updated_at`

// Get retrieves the state for a source key.
func (s *indexingStateStore) Get(ctx context.Context, sourceKey string) (*domain.IndexingState, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+stateColumns+" FROM indexing_state WHERE source_key = ?", sourceKey)
	return scanState(row)
}

// Save creates or refreshes the state for its source key.
func (s *indexingStateStore) Save(ctx context.Context, state domain.IndexingState) error {
	if state.SourceKey == "" {
		return fmt.Errorf("%w: source key is required", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO indexing_state (`+stateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET
			source_type = excluded.source_type,
			team_id = excluded.team_id,
			api_path = excluded.api_path,
			resource_id = excluded.resource_id,
			document_prefix = excluded.document_prefix,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at
	`, state.SourceKey, string(state.SourceType), state.TeamID, state.APIPath, state.ResourceID,
		state.DocumentPrefix, state.ContentHash, state.ChunkCount,
		state.UpdatedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("saving indexing state: %w", err)
	}
	return nil
}

// Delete removes the state for a source key.
func (s *indexingStateStore) Delete(ctx context.Context, sourceKey string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM indexing_state WHERE source_key = ?", sourceKey)
	if err != nil {
		return fmt.Errorf("deleting indexing state: %w", err)
	}
	return nil
}

// FindByResource returns the states of one upstream resource.
func (s *indexingStateStore) FindByResource(
	ctx context.Context, sourceType domain.SourceType, teamID int64, resourceID string,
) ([]domain.IndexingState, error) {
	query := "SELECT " + stateColumns + " FROM indexing_state WHERE team_id = ? AND resource_id = ?"
	args := []any{teamID, resourceID}
	if sourceType != "" {
		query += " AND source_type = ?"
		args = append(args, string(sourceType))
	}
	query += " ORDER BY source_key"

	return s.query(ctx, query, args...)
}

// FindByPrefix returns the state owning a document prefix.
func (s *indexingStateStore) FindByPrefix(ctx context.Context, prefix string) (*domain.IndexingState, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+stateColumns+" FROM indexing_state WHERE document_prefix = ? LIMIT 1", prefix)
	return scanState(row)
}

// List returns all states, or one team's when teamID is non-zero.
func (s *indexingStateStore) List(ctx context.Context, teamID int64) ([]domain.IndexingState, error) {
	if teamID == 0 {
		return s.query(ctx, "SELECT "+stateColumns+" FROM indexing_state ORDER BY source_key")
	}
	return s.query(ctx,
		"SELECT "+stateColumns+" FROM indexing_state WHERE team_id = ? ORDER BY source_key", teamID)
}

func (s *indexingStateStore) query(ctx context.Context, query string, args ...any) ([]domain.IndexingState, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying indexing state: %w", err)
	}
	defer rows.Close()

	var states []domain.IndexingState //nolint:prealloc // size unknown from query
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexing state: %w", err)
	}

	return states, nil
}

// recordStore implements driven.VectorRecordStore.
type recordStore struct {
	store *Store
}

var _ driven.VectorRecordStore = (*recordStore)(nil)

// SaveRecords inserts or replaces records in one transaction.
func (s *recordStore) SaveRecords(ctx context.Context, records []domain.EmbeddedRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_records (id, text, metadata, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		metadataJSON, err := json.Marshal(rec.Record.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling record metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, rec.Record.ID, rec.Record.Text,
			string(metadataJSON), float32SliceToBytes(rec.Embedding)); err != nil {
			return fmt.Errorf("saving record %s: %w", rec.Record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteRecords removes records by ID.
func (s *recordStore) DeleteRecords(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM vector_records WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("deleting record %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadRecords returns every persisted record ordered by ID.
func (s *recordStore) LoadRecords(ctx context.Context) ([]domain.EmbeddedRecord, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, text, metadata, embedding FROM vector_records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddedRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.EmbeddedRecord
		var metadataJSON string
		var embeddingBlob []byte

		if err := rows.Scan(&rec.Record.ID, &rec.Record.Text, &metadataJSON, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &rec.Record.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling record metadata: %w", err)
			}
		}
		rec.Embedding = bytesToFloat32Slice(embeddingBlob)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*domain.IndexingState, error) {
	var state domain.IndexingState
	var sourceType, updatedAt string

	if err := row.Scan(&state.SourceKey, &sourceType, &state.TeamID, &state.APIPath,
		&state.ResourceID, &state.DocumentPrefix, &state.ContentHash, &state.ChunkCount,
		&updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning indexing state: %w", err)
	}

	state.SourceType = domain.SourceType(sourceType)
	if updatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		state.UpdatedAt = t
	}

	return &state, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
