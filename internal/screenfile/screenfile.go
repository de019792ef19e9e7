// Package screenfile renders the screen descriptions of a model registry as
// JSON files, one per model, and checks a directory of such files for drift
// against the models.
package screenfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/store"
)

// File is the generated description of one model.
type File struct {
	Model      string                       `json:"model"`
	Key        string                       `json:"key"`
	Table      string                       `json:"table"`
	Screen     screen.ScreenDescription     `json:"screen"`
	Properties []screen.PropertyDescription `json:"properties"`
	Defaults   map[string]any               `json:"defaults,omitempty"`
}

// Name returns the file name the description is written to.
func (f File) Name() string { return f.Key + ".json" }

// Marshal returns the indented JSON written for f.
func (f File) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", f.Model, err)
	}
	return append(data, '\n'), nil
}

// Describe resolves every model in r. Metadata errors of all models are
// reported together.
func Describe(r *meta.Registry) ([]File, error) {
	var (
		out  []File
		errs []error
	)
	for _, m := range r.Models() {
		f, err := describe(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, f)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("describing models: %w", errors.Join(errs...))
	}
	return out, nil
}

func describe(m meta.Model) (File, error) {
	d := screen.NewDescriber[store.Record](m, screen.WithLogger(screen.NopLogger))
	desc, err := d.Screen()
	if err != nil {
		return File{}, err
	}
	props, err := d.Properties()
	if err != nil {
		return File{}, err
	}
	attrs, err := m.Attributes()
	if err != nil {
		return File{}, meta.WrapError(m.Name(), err)
	}
	f := File{
		Model:      m.Name(),
		Key:        meta.Key(m.Name()),
		Table:      store.TableName(m.Name()),
		Screen:     desc,
		Properties: props,
	}
	for _, a := range attrs {
		// func defaults are evaluated per record and have no static value
		if !a.HasDefault() || reflect.TypeOf(a.Default).Kind() == reflect.Func {
			continue
		}
		if f.Defaults == nil {
			f.Defaults = make(map[string]any)
		}
		f.Defaults[a.Name] = a.Default
	}
	return f, nil
}

// Write writes files into dir, creating it if needed, and returns the
// written paths.
func Write(dir string, files []File) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	var paths []string
	for _, f := range files {
		data, err := f.Marshal()
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, f.Name())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// DriftKind classifies a difference between generated and expected files.
type DriftKind string

const (
	DriftMissing  DriftKind = "missing"  // model has no file
	DriftStale    DriftKind = "stale"    // file content differs
	DriftOrphaned DriftKind = "orphaned" // file has no model
)

// Drift is one file out of date with the models.
type Drift struct {
	File string
	Kind DriftKind
}

func (d Drift) String() string { return fmt.Sprintf("%s: %s", d.File, d.Kind) }

// Check compares the JSON files in dir with files. A missing dir counts
// as every file missing.
func Check(dir string, files []File) ([]Drift, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	onDisk := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			onDisk[e.Name()] = true
		}
	}

	var drift []Drift
	for _, f := range files {
		name := f.Name()
		if !onDisk[name] {
			drift = append(drift, Drift{File: name, Kind: DriftMissing})
			continue
		}
		delete(onDisk, name)
		want, err := f.Marshal()
		if err != nil {
			return nil, err
		}
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if !bytes.Equal(got, want) {
			drift = append(drift, Drift{File: name, Kind: DriftStale})
		}
	}
	for name := range onDisk {
		drift = append(drift, Drift{File: name, Kind: DriftOrphaned})
	}
	slices.SortFunc(drift, func(a, b Drift) int { return strings.Compare(a.File, b.File) })
	return drift, nil
}
