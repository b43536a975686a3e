package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docsync/internal/adapters/driven/config/coerce"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

const fileName = "config.toml"

// ConfigStore keeps docsync settings in a TOML file.
//
// Tables are flattened into dotted keys on load, so
//
//	[pipeline]
//	chunk_size = 800
//
// reads back as "pipeline.chunk_size". Writes nest the keys again.
type ConfigStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
}

// NewConfigStore opens configDir/config.toml, creating the directory if
// needed. An empty configDir means ~/.docsync.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		configDir = filepath.Join(home, ".docsync")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{path: filepath.Join(configDir, fileName)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the raw value stored under a dotted key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the string under key, or "" if unset or not a string.
func (s *ConfigStore) GetString(key string) string {
	return coerce.String(s.value(key))
}

// GetInt returns the integer under key. Floats are truncated.
func (s *ConfigStore) GetInt(key string) int {
	return coerce.Int(s.value(key))
}

// GetFloat returns the number under key.
func (s *ConfigStore) GetFloat(key string) float64 {
	return coerce.Float(s.value(key))
}

// GetBool returns the boolean under key, or false.
func (s *ConfigStore) GetBool(key string) bool {
	return coerce.Bool(s.value(key))
}

// GetDuration accepts "90s"-style strings. Bare integers are seconds.
func (s *ConfigStore) GetDuration(key string) time.Duration {
	return coerce.Duration(s.value(key))
}

// GetStringSlice returns the string elements of the array under key.
func (s *ConfigStore) GetStringSlice(key string) []string {
	return coerce.Strings(s.value(key))
}

func (s *ConfigStore) value(key string) any {
	v, _ := s.Get(key)
	return v
}

// Set stores value under key and rewrites the file. A failed write leaves
// the previous value in place.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.write(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Save writes the current values to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write replaces the file through a temp file in the same directory.
// Callers hold mu.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nestKeys(s.values))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Load rereads the file. A missing file is an empty config.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.values = make(map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	s.values = make(map[string]any, len(tree))
	flattenInto(s.values, tree, "")
	return nil
}

// Path returns the TOML file location.
func (s *ConfigStore) Path() string {
	return s.path
}

func flattenInto(dst, tree map[string]any, prefix string) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			flattenInto(dst, table, key)
			continue
		}
		dst[key] = value
	}
}

// nestKeys turns dotted keys back into tables. Shallow keys are placed
// first, so a key that would have to descend through a scalar stays at the
// root under its dotted name.
func nestKeys(flat map[string]any) map[string]any {
	keys := slices.Collect(maps.Keys(flat))
	slices.SortFunc(keys, func(a, b string) int {
		if d := strings.Count(a, ".") - strings.Count(b, "."); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		if table, ok := descend(root, parts[:len(parts)-1]); ok {
			table[parts[len(parts)-1]] = flat[key]
			continue
		}
		root[key] = flat[key]
	}
	return root
}

func descend(root map[string]any, path []string) (map[string]any, bool) {
	node := root
	for _, part := range path {
		child, exists := node[part]
		if !exists {
			next := make(map[string]any)
			node[part] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, true
}
