// Package runstore persists remediation run state as JSON under
// ~/.mendloop/runs/<pr>/run.json so finished runs can be reported later.
package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/mendloop/mendloop/internal/loop"
)

// Store manages run state on disk, one directory per pull request.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.mendloop/runs, creating the directory
// if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".mendloop", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) runPath(pr int) string {
	return filepath.Join(s.baseDir, strconv.Itoa(pr), "run.json")
}

// Save writes the run state for its PR, replacing any previous state. It
// implements the controller's Saver contract.
func (s *Store) Save(state *loop.State) error {
	if state == nil {
		return fmt.Errorf("nil run state")
	}
	if state.PR <= 0 {
		return fmt.Errorf("invalid PR number %d", state.PR)
	}
	if err := writeJSONAtomic(s.runPath(state.PR), state); err != nil {
		return fmt.Errorf("save run for PR %d: %w", state.PR, err)
	}
	return nil
}

// Get reads the stored run state for a PR. Returns os.ErrNotExist (wrapped)
// if no run has been saved.
func (s *Store) Get(pr int) (*loop.State, error) {
	data, err := os.ReadFile(s.runPath(pr))
	if err != nil {
		return nil, fmt.Errorf("read run for PR %d: %w", pr, err)
	}
	var state loop.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse run for PR %d: %w", pr, err)
	}
	return &state, nil
}

// List returns the PR numbers with stored runs, ascending.
func (s *Store) List() ([]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var prs []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pr, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if _, err := os.Stat(s.runPath(pr)); err != nil {
			continue
		}
		prs = append(prs, pr)
	}
	sort.Ints(prs)
	return prs, nil
}

// Delete removes the stored run for a PR. Deleting a missing run is not an
// error.
func (s *Store) Delete(pr int) error {
	dir := filepath.Join(s.baseDir, strconv.Itoa(pr))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete run for PR %d: %w", pr, err)
	}
	return nil
}

// writeJSONAtomic marshals v and writes it via a temp file in the target
// directory, renamed into place so readers never see a partial file.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".run-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = ""
	return nil
}
