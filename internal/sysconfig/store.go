// Package sysconfig implements the process-wide System Config Store: a
// thread-safe, JSON-shaped configuration tree with dotted/slash-path
// get/set/merge/delete, default seeding, and file-backed persistence with
// change notification — the Go-native analogue of the teacher's config
// package (mutex-guarded in-memory state, fsnotify-driven reload, zerolog
// warnings when a reload fails).
package sysconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
)

// Store guards one JSON tree behind a single exclusive mutex (spec.md §4.C:
// "System Config Store uses an exclusive mutex; all reads acquire the
// mutex but are short").
type Store struct {
	mu      sync.Mutex
	data    map[string]interface{}
	path    string
	watcher *fsnotify.Watcher
}

// New creates a Store seeded with defaults. If path points at an existing
// file, its contents replace the seeded defaults; a missing file is not an
// error — defaults are what gets written on the next Save.
func New(path string) (*Store, error) {
	s := &Store{path: path, data: defaults()}
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, coreerr.Wrap("sysconfig.New", coreerr.TransientIO, "failed to load persisted config", err)
		}
	}
	return s, nil
}

// Load reads and replaces the in-memory tree from the persisted file.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return coreerr.Wrap("sysconfig.Load", coreerr.TransientIO, "read config file", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return coreerr.Wrap("sysconfig.Load", coreerr.TransientIO, "parse config file", err)
	}
	s.mu.Lock()
	s.data = tree
	s.mu.Unlock()
	return nil
}

// Save persists the current tree atomically (write to a temp file, then
// rename over the target) so a reader never observes a partial write.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return coreerr.Wrap("sysconfig.Save", coreerr.Internal, "marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return coreerr.Wrap("sysconfig.Save", coreerr.TransientIO, "create config dir", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return coreerr.Wrap("sysconfig.Save", coreerr.TransientIO, "write temp config", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return coreerr.Wrap("sysconfig.Save", coreerr.TransientIO, "rename temp config", err)
	}
	return nil
}

// Get resolves path (dotted or slash-separated) against the tree. An empty
// path returns the whole tree.
func (s *Store) Get(path string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup(s.data, splitPath(path))
}

func lookup(tree map[string]interface{}, keys []string) (interface{}, bool) {
	if len(keys) == 0 {
		return cloneValue(tree), true
	}
	cur := interface{}(tree)
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[k]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cloneValue(cur), true
}

// SetMerge descends into existing sub-objects along path and overlays
// matching keys from value, creating intermediate objects as needed.
func (s *Store) SetMerge(path string, value interface{}) error {
	keys := splitPath(path)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		asMap, ok := value.(map[string]interface{})
		if !ok {
			return coreerr.New("sysconfig.SetMerge", coreerr.InvalidArgument, "root value must be an object")
		}
		s.data = mergeObjects(s.data, asMap)
		return nil
	}

	parent := s.data
	for _, k := range keys[:len(keys)-1] {
		next, ok := parent[k].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			parent[k] = next
		}
		parent = next
	}
	lastKey := keys[len(keys)-1]
	if existing, ok := parent[lastKey].(map[string]interface{}); ok {
		if incoming, ok := value.(map[string]interface{}); ok {
			parent[lastKey] = mergeObjects(existing, incoming)
			return nil
		}
	}
	parent[lastKey] = value
	return nil
}

func mergeObjects(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if baseSub, ok := out[k].(map[string]interface{}); ok {
			if overlaySub, ok := v.(map[string]interface{}); ok {
				out[k] = mergeObjects(baseSub, overlaySub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// SetReplaceAt overwrites the value at path outright, creating
// intermediate objects as needed — the PUT-replaces-a-section behavior
// spec.md §6 distinguishes from SetMerge's POST-merges behavior. An
// empty path replaces the whole tree, same as SetReplace.
func (s *Store) SetReplaceAt(path string, value interface{}) error {
	keys := splitPath(path)
	if len(keys) == 0 {
		asMap, ok := value.(map[string]interface{})
		if !ok {
			return coreerr.New("sysconfig.SetReplaceAt", coreerr.InvalidArgument, "root value must be an object")
		}
		return s.SetReplace(asMap)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	parent := s.data
	for _, k := range keys[:len(keys)-1] {
		next, ok := parent[k].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			parent[k] = next
		}
		parent = next
	}
	parent[keys[len(keys)-1]] = value
	return nil
}

// SetReplace substitutes the whole tree.
func (s *Store) SetReplace(value map[string]interface{}) error {
	if value == nil {
		return coreerr.New("sysconfig.SetReplace", coreerr.InvalidArgument, "value must be a non-nil object")
	}
	s.mu.Lock()
	s.data = value
	s.mu.Unlock()
	return nil
}

// Delete removes path. It is a no-op that reports false when the path is
// absent — callers surface this as 404 per spec.md §4.C.
func (s *Store) Delete(path string) bool {
	keys := splitPath(path)
	if len(keys) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.data
	for _, k := range keys[:len(keys)-1] {
		next, ok := parent[k].(map[string]interface{})
		if !ok {
			return false
		}
		parent = next
	}
	lastKey := keys[len(keys)-1]
	if _, ok := parent[lastKey]; !ok {
		return false
	}
	delete(parent, lastKey)
	return true
}

// ResetDefaults restores the seeded defaults and rewrites them to disk.
func (s *Store) ResetDefaults() error {
	s.mu.Lock()
	s.data = defaults()
	s.mu.Unlock()
	return s.Save()
}

// ReloadConfig re-reads the persisted file. It takes no lock itself and
// leaves locking to Load, so it cannot self-deadlock.
func (s *Store) ReloadConfig() error {
	return s.Load()
}

// Watch starts an fsnotify watcher on the persisted file and invokes
// onChange whenever it is written or created. The watcher is kept inside
// the Store and is not returned; Store has no Close, so the watch runs for
// the rest of the process lifetime (the teacher's single fsnotify watcher
// per config file).
func (s *Store) Watch(onChange func()) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return coreerr.Wrap("sysconfig.Watch", coreerr.TransientIO, "create watcher", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return coreerr.Wrap("sysconfig.Watch", coreerr.TransientIO, "watch config dir", err)
	}
	s.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.ReloadConfig(); err != nil {
					log.Warn().Err(err).Str("path", s.path).Msg("config reload after fsnotify event failed")
					continue
				}
				if onChange != nil {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
