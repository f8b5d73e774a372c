// Package persist owns the on-disk artefacts: the two model archives
// and the scalar state document. Every write is atomic; every load is
// best-effort — a missing or corrupted file reads as "no previous
// state" so a damaged base directory sends the detector back into
// training instead of crashing it.
package persist

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ModelArchive is the serialized form of one statistical model. It is
// gob-encoded inside a gzip stream: gob carries the field names with
// the data, so a future dimension change is recoverable from the file
// alone, and float64 values round-trip bit-for-bit.
type ModelArchive struct {
	Dim    int
	Mu     []float64
	Cov    []float64 // row-major d×d
	CovInv []float64 // row-major d×d
}

func (a *ModelArchive) valid() bool {
	return a.Dim > 0 &&
		len(a.Mu) == a.Dim &&
		len(a.Cov) == a.Dim*a.Dim &&
		len(a.CovInv) == a.Dim*a.Dim
}

// State is the scalar state document stored as pretty-printed JSON.
type State struct {
	Threshold float64 `json:"threshold"`
	Risk      float64 `json:"risk"`
}

// Manager resolves artefact paths under a base directory and performs
// the saves and loads. The engine is its only writer.
type Manager struct {
	baseDir string
}

// NewManager returns a Manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// StateFile is the path of the scalar state document.
func (m *Manager) StateFile() string { return filepath.Join(m.baseDir, "state.json") }

// ShortModelFile is the path of the short-timescale model archive.
func (m *Manager) ShortModelFile() string { return filepath.Join(m.baseDir, "model_short.bin") }

// LongModelFile is the path of the long-timescale model archive.
func (m *Manager) LongModelFile() string { return filepath.Join(m.baseDir, "model_long.bin") }

// SaveModel atomically writes a model archive.
func (m *Manager) SaveModel(path string, archive ModelArchive) error {
	if !archive.valid() {
		return fmt.Errorf("persist: refusing to save inconsistent archive (dim %d)", archive.Dim)
	}
	return atomicWrite(path, func(f *os.File) error {
		gz := gzip.NewWriter(f)
		if err := gob.NewEncoder(gz).Encode(&archive); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	})
}

// LoadModel reads a model archive. It returns nil — never an error —
// when the file is missing, unreadable, or internally inconsistent.
func (m *Manager) LoadModel(path string) *ModelArchive {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil
	}
	defer gz.Close()

	var archive ModelArchive
	if err := gob.NewDecoder(gz).Decode(&archive); err != nil {
		return nil
	}
	if !archive.valid() {
		return nil
	}
	return &archive
}

// SaveState atomically writes the scalar state document with
// human-readable indentation.
func (m *Manager) SaveState(s State) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("persist: encode state: %w", err)
	}
	data = append(data, '\n')
	return atomicWrite(m.StateFile(), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// LoadState reads the scalar state document. ok is false when the file
// is missing, malformed, or lacks the threshold field — the same "no
// previous state" outcome as a missing model archive.
func (m *Manager) LoadState() (State, bool) {
	data, err := os.ReadFile(m.StateFile())
	if err != nil {
		return State{}, false
	}

	var raw struct {
		Threshold *float64 `json:"threshold"`
		Risk      *float64 `json:"risk"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, false
	}
	if raw.Threshold == nil {
		return State{}, false
	}

	s := State{Threshold: *raw.Threshold}
	if raw.Risk != nil {
		s.Risk = *raw.Risk
	}
	return s, true
}
