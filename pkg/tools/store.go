package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

const storeFileName = "tools.json"

// Definition is one dynamically registered tool, persisted in the
// tool-definition store. Command is executed with the call's JSON arguments
// appended as the final argument; stdout becomes the tool result.
type Definition struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Command     []string `json:"command"`
	Dir         string   `json:"dir,omitempty"`
}

// Validate reports every problem with the definition at once
func (d Definition) Validate() error {
	var result *multierror.Error
	if d.Name == "" {
		result = multierror.Append(result, errors.New("tool name is required"))
	}
	if d.Description == "" {
		result = multierror.Append(result, errors.New("tool description is required"))
	}
	if len(d.Command) == 0 {
		result = multierror.Append(result, errors.New("tool command is required"))
	}
	return result.ErrorOrNil()
}

// Store is the durable source of truth for dynamic tool definitions,
// a JSON document next to the skills tree. Appends are serialized; the
// catalog reads the store only during Reload.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store rooted in the given directory
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, storeFileName)}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads all persisted definitions. A missing file is an empty store; a
// corrupt file is logged and treated as empty rather than failing a reload.
func (s *Store) Load(ctx context.Context) []Definition {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.G(ctx).WithField("path", s.path).WithError(err).Warn("tool definition store not readable")
		}
		return nil
	}

	var defs []Definition
	if err := json.Unmarshal(content, &defs); err != nil {
		logger.G(ctx).WithField("path", s.path).WithError(err).Warn("tool definition store is corrupt, ignoring")
		return nil
	}
	return defs
}

// Append persists a new definition. Re-adding an existing name is a no-op
// ("already registered"), reported through the bool return.
func (s *Store) Append(ctx context.Context, def Definition) (bool, error) {
	if err := def.Validate(); err != nil {
		return false, errors.Wrap(err, "invalid tool definition")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defs := s.Load(ctx)
	for _, existing := range defs {
		if existing.Name == def.Name {
			logger.G(ctx).WithField("tool", def.Name).Info("tool already registered, skipping append")
			return false, nil
		}
	}
	defs = append(defs, def)

	payload, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return false, errors.Wrap(err, "failed to encode tool definitions")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return false, errors.Wrap(err, "failed to create store directory")
	}

	// write-then-rename so a concurrent Load never sees a torn file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return false, errors.Wrap(err, "failed to write tool definitions")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return false, errors.Wrap(err, "failed to replace tool definitions")
	}
	return true, nil
}
