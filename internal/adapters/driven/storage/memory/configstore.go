package memory

import (
	"maps"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/adapters/driven/config/coerce"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore holds settings for ephemeral runs and tests. Keys use the
// dotted form of the TOML store ("pipeline.chunk_size").
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore copies seed, so later changes to it are not seen.
func NewConfigStore(seed map[string]any) *ConfigStore {
	values := make(map[string]any, len(seed))
	maps.Copy(values, seed)
	return &ConfigStore{values: values}
}

// Get returns the raw value stored under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) lookup(key string) any {
	v, _ := s.Get(key)
	return v
}

// GetString returns the string under key, or "" if unset or not a string.
func (s *ConfigStore) GetString(key string) string {
	return coerce.String(s.lookup(key))
}

// GetInt returns the integer under key. Floats are truncated.
func (s *ConfigStore) GetInt(key string) int {
	return coerce.Int(s.lookup(key))
}

// GetFloat returns the number under key.
func (s *ConfigStore) GetFloat(key string) float64 {
	return coerce.Float(s.lookup(key))
}

// GetBool returns the boolean under key, or false.
func (s *ConfigStore) GetBool(key string) bool {
	return coerce.Bool(s.lookup(key))
}

// GetDuration accepts "90s"-style strings. Bare integers are seconds.
func (s *ConfigStore) GetDuration(key string) time.Duration {
	return coerce.Duration(s.lookup(key))
}

// GetStringSlice returns the string elements of the array under key.
func (s *ConfigStore) GetStringSlice(key string) []string {
	return coerce.Strings(s.lookup(key))
}

// Set stores value in memory only.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error {
	return nil
}

// Load is a no-op.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns ":memory:".
func (s *ConfigStore) Path() string {
	return ":memory:"
}
