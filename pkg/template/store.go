// Package template persists named watermark specs and the last-session
// snapshot as one JSON record per file.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"wmstudio/internal/fsutil"
	"wmstudio/pkg/watermark"
)

var (
	ErrInvalidName   = errors.New("invalid template name")
	ErrNotFound      = errors.New("template not found")
	ErrCorruptRecord = errors.New("corrupt template record")
)

const (
	templatesDir = "templates"
	sessionFile  = "session.json"
	recordExt    = ".json"
)

// Template is a named, persisted spec.
type Template struct {
	Name      string
	Spec      watermark.Spec
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CorruptRecord is a template file that could not be read back.
type CorruptRecord struct {
	File string
	Err  error
}

// Listing is the result of LoadAll. Corrupt records are reported, not fatal.
type Listing struct {
	Templates []Template
	Corrupt   []CorruptRecord
}

// Store keeps templates under <dir>/templates and the session snapshot in
// <dir>/session.json. Specs are copied on the way in and out, so callers
// never share state with the store.
type Store struct {
	dir string
	log *zap.Logger
	now func() time.Time
}

// Open prepares dir for use as a template store.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("template store directory is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Join(dir, templatesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create template store: %w", err)
	}
	return &Store{dir: dir, log: log, now: time.Now}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// Save writes spec under name, replacing any template of the same name.
// CreatedAt survives replacement.
func (s *Store) Save(name string, spec watermark.Spec) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := checkSpec(spec); err != nil {
		return err
	}
	now := s.now().UTC()
	created := now
	if prev, err := s.Load(name); err == nil {
		created = prev.CreatedAt
	}
	if err := s.write(s.path(name), newRecord(name, spec, created, now)); err != nil {
		return fmt.Errorf("save template %q: %w", name, err)
	}
	s.log.Info("template saved", zap.String("name", name))
	return nil
}

// Load reads the template called name.
func (s *Store) Load(name string) (Template, error) {
	name, err := cleanName(name)
	if err != nil {
		return Template{}, err
	}
	rec, err := s.read(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Template{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return Template{}, err
	}
	return Template{Name: rec.Name, Spec: rec.spec(), CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}, nil
}

// LoadAll reads every template, sorted by name. Unreadable records are
// logged, listed in Corrupt and otherwise skipped.
func (s *Store) LoadAll() (Listing, error) {
	files, err := s.files()
	if err != nil {
		return Listing{}, err
	}
	var out Listing
	for _, f := range files {
		rec, err := s.read(f)
		if err != nil {
			s.log.Warn("skipping template record", zap.String("file", f), zap.Error(err))
			out.Corrupt = append(out.Corrupt, CorruptRecord{File: f, Err: err})
			continue
		}
		out.Templates = append(out.Templates, Template{
			Name:      rec.Name,
			Spec:      rec.spec(),
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	sort.Slice(out.Templates, func(i, j int) bool { return out.Templates[i].Name < out.Templates[j].Name })
	return out, nil
}

// Names lists the persisted template names, sorted.
func (s *Store) Names() ([]string, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		n, err := url.PathUnescape(strings.TrimSuffix(filepath.Base(f), recordExt))
		if err != nil {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the template called name.
func (s *Store) Delete(name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return err
	}
	s.log.Info("template deleted", zap.String("name", name))
	return nil
}

// SaveSession overwrites the last-session snapshot.
func (s *Store) SaveSession(spec watermark.Spec) error {
	if err := checkSpec(spec); err != nil {
		return err
	}
	now := s.now().UTC()
	if err := s.write(filepath.Join(s.dir, sessionFile), newRecord("", spec, now, now)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the last-session snapshot. ok is false when none has
// been saved yet.
func (s *Store) LoadSession() (spec watermark.Spec, ok bool, err error) {
	rec, err := s.read(filepath.Join(s.dir, sessionFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return watermark.Spec{}, false, nil
		}
		return watermark.Spec{}, false, err
	}
	return rec.spec(), true, nil
}

// path maps a name to its record file. A leading dot is escaped so records
// never look like hidden or temporary files.
func (s *Store) path(name string) string {
	file := url.PathEscape(name)
	if strings.HasPrefix(file, ".") {
		file = "%2E" + file[1:]
	}
	return filepath.Join(s.dir, templatesDir, file+recordExt)
}

func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, templatesDir))
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != recordExt {
			continue
		}
		out = append(out, filepath.Join(s.dir, templatesDir, e.Name()))
	}
	return out, nil
}

func (s *Store) write(path string, rec record) error {
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	})
}

// read decodes and checks one record. Missing files come back as
// fs.ErrNotExist, anything else unreadable as ErrCorruptRecord.
func (s *Store) read(path string) (record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, filepath.Base(path), err)
	}
	if err := rec.check(); err != nil {
		return record{}, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, filepath.Base(path), err)
	}
	return rec, nil
}

func cleanName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", fmt.Errorf("%w: name is blank", ErrInvalidName)
	}
	return n, nil
}
