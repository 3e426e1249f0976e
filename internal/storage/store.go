package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/marbles/internal/codec"
)

var (
	ErrInvalidName = errors.New("storage: invalid name")
	ErrNotFound    = errors.New("storage: not found")
)

const (
	scenesDir = "scenes"
	tracesDir = "traces"
)

// Store keeps scene documents and recorded traces under one directory:
//
//	<base>/scenes/<name>.json|.yaml
//	<base>/traces/<name>/metadata.json
//	<base>/traces/<name>/states.csv
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) Init() error {
	for _, dir := range []string{scenesDir, tracesDir} {
		if err := os.MkdirAll(filepath.Join(s.baseDir, dir), 0755); err != nil {
			return err
		}
	}
	return nil
}

// SceneInfo describes a stored scene without decoding it into a scene.
type SceneInfo struct {
	Name        string
	Format      codec.Format
	Version     int
	Bodies      int
	Constraints int
	Modified    time.Time
}

// SaveScene writes doc atomically: the document goes to a temporary file
// in the same directory which is then renamed over the target. A copy of
// the same name in the other format is removed.
func (s *Store) SaveScene(name string, doc *codec.Document, format codec.Format) error {
	if err := validName(name); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, scenesDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := codec.Write(tmp, doc, format); err != nil {
		tmp.Close()
		return fmt.Errorf("write scene %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	target := filepath.Join(dir, name+format.Ext())
	if err := os.Rename(tmp.Name(), target); err != nil {
		return err
	}
	for _, ext := range sceneExts {
		if other := filepath.Join(dir, name+ext); other != target {
			_ = os.Remove(other)
		}
	}
	return nil
}

// LoadScene reads a stored scene document. JSON wins over YAML when both exist.
func (s *Store) LoadScene(name string) (*codec.Document, error) {
	path, format, err := s.scenePath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := codec.Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", name, err)
	}
	return doc, nil
}

func (s *Store) DeleteScene(name string) error {
	path, _, err := s.scenePath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// ListScenes returns every readable scene sorted by name. Unreadable files
// are skipped.
func (s *Store) ListScenes() ([]SceneInfo, error) {
	dir := filepath.Join(s.baseDir, scenesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SceneInfo{}, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	scenes := make([]SceneInfo, 0)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		format, err := codec.FormatFromPath(entry.Name())
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if seen[name] {
			continue
		}

		doc, err := s.LoadScene(name)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		seen[name] = true
		scenes = append(scenes, SceneInfo{
			Name:        name,
			Format:      format,
			Version:     doc.Version,
			Bodies:      len(doc.Bodies),
			Constraints: len(doc.Constraints),
			Modified:    info.ModTime(),
		})
	}

	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes, nil
}

var sceneExts = []string{".json", ".yaml", ".yml"}

func (s *Store) scenePath(name string) (string, codec.Format, error) {
	if err := validName(name); err != nil {
		return "", codec.JSON, err
	}
	for _, ext := range sceneExts {
		path := filepath.Join(s.baseDir, scenesDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			format, err := codec.FormatFromPath(path)
			return path, format, err
		}
	}
	return "", codec.JSON, fmt.Errorf("%w: scene %q", ErrNotFound, name)
}

func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
