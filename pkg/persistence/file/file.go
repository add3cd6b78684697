// Package file provides file-based persistence for local development runs.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pinfeed/curator/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of per-document
// JSON files under a root directory. A single lock serializes mutations;
// documents are small and writes are whole-file.
type Persistence struct {
	root        string
	mu          sync.RWMutex
	promptRepo  *PromptRepository
	sessionRepo *SessionRepository
	statusRepo  *StatusRepository
	pinRepo     *PinRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.promptRepo = &PromptRepository{store: p}
	p.sessionRepo = &SessionRepository{store: p}
	p.statusRepo = &StatusRepository{store: p}
	p.pinRepo = &PinRepository{store: p}

	return p
}

func (p *Persistence) Prompts() persistence.PromptRepository {
	return p.promptRepo
}

func (p *Persistence) Sessions() persistence.SessionRepository {
	return p.sessionRepo
}

func (p *Persistence) StatusRecords() persistence.StatusRepository {
	return p.statusRepo
}

func (p *Persistence) Pins() persistence.PinRepository {
	return p.pinRepo
}

// Close performs any necessary cleanup. For file persistence there is none.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) write(dir, id string, doc any) error {
	fullDir := path.Join(p.root, dir)

	err := os.MkdirAll(fullDir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", dir, id, err)
	}

	return os.WriteFile(path.Join(fullDir, id+".json"), data, 0600)
}

// read unmarshals one document; returns fs.ErrNotExist when absent.
func (p *Persistence) read(dir, id string, doc any) error {
	data, err := os.ReadFile(path.Join(p.root, dir, id+".json"))
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, doc)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", dir, id, err)
	}

	return nil
}

func (p *Persistence) remove(dir, id string) error {
	err := os.Remove(path.Join(p.root, dir, id+".json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	return err
}

// ids lists document ids in a directory, in lexical order.
func (p *Persistence) ids(dir string) ([]string, error) {
	root := os.DirFS(path.Join(p.root, dir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
