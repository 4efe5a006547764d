// Package manifest records which outputs each pipeline run wrote.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/KaramelBytes/tractmobility-cli/internal/utils"
	"github.com/google/uuid"
)

// FileName is the manifest's name inside the processed directory.
const FileName = "manifest.json"

// Manifest is persisted as processed_dir/manifest.json.
type Manifest struct {
	RunID     string             `json:"run_id"`
	Command   string             `json:"command"`
	StartedAt time.Time          `json:"started_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Outputs   map[string]*Output `json:"outputs"`

	// Not serialized: directory holding manifest.json
	dir string
}

// Output describes one written file.
type Output struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Dataset   string    `json:"dataset,omitempty"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	RunID     string    `json:"run_id"`
	WrittenAt time.Time `json:"written_at"`
}

// Load reads the manifest in dir. A missing file yields an empty manifest.
func Load(dir string) (*Manifest, error) {
	m := &Manifest{Outputs: map[string]*Output{}, dir: dir}
	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Outputs == nil {
		m.Outputs = map[string]*Output{}
	}
	m.dir = dir
	return m, nil
}

// Begin starts a new run with a fresh id. Earlier outputs are kept.
func (m *Manifest) Begin(command string) string {
	m.RunID = uuid.NewString()
	m.Command = command
	m.StartedAt = time.Now()
	m.UpdatedAt = m.StartedAt
	return m.RunID
}

// Record registers an output written during the current run.
func (m *Manifest) Record(dataset, path string, rows, columns int) {
	name := filepath.Base(path)
	m.Outputs[name] = &Output{
		Name:      name,
		Path:      path,
		Dataset:   dataset,
		Rows:      rows,
		Columns:   columns,
		RunID:     m.RunID,
		WrittenAt: time.Now(),
	}
	m.UpdatedAt = time.Now()
}

// Sorted returns outputs ordered by name.
func (m *Manifest) Sorted() []*Output {
	out := make([]*Output, 0, len(m.Outputs))
	for _, o := range m.Outputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save writes manifest.json atomically.
func (m *Manifest) Save() error {
	if m.dir == "" {
		return errors.New("manifest directory not set")
	}
	if err := utils.EnsureDir(m.dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(m.dir, FileName), data)
}
