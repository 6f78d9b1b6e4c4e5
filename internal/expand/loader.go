package expand

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"paramgen/internal/directive"
	"paramgen/internal/source"
)

// DefaultExtension is tried when a template name is given without one.
const DefaultExtension = ".cgen_template"

// Template is a parsed template file.
type Template struct {
	Name  string // name the template was resolved under
	File  *source.File
	Nodes []directive.Node
}

// Scaffolder creates a blank template so a later run finds it.
type Scaffolder interface {
	Scaffold(name string) error
}

// Loader resolves template names against a file system and parses every
// file at most once.
type Loader struct {
	fsys   fs.FS
	prefix string
	ext    string
	files  *source.FileSet
	cache  map[string]*Template
}

// NewLoader reads templates from fsys. prefix is prepended to file names in
// diagnostics; ext defaults to DefaultExtension.
func NewLoader(fsys fs.FS, prefix string, files *source.FileSet, ext string) *Loader {
	if ext == "" {
		ext = DefaultExtension
	}
	return &Loader{
		fsys:   fsys,
		prefix: prefix,
		ext:    ext,
		files:  files,
		cache:  make(map[string]*Template),
	}
}

// Files returns the FileSet templates are loaded into.
func (l *Loader) Files() *source.FileSet {
	return l.files
}

// Extension returns the template extension.
func (l *Loader) Extension() string {
	return l.ext
}

// candidates lists the file names tried for name, in order.
func (l *Loader) candidates(name string) []string {
	name = strings.TrimPrefix(path.Clean(name), "./")
	if strings.HasSuffix(name, l.ext) {
		return []string{name}
	}
	return []string{name + l.ext, name}
}

// Canonical returns the file name name resolves to if it were scaffolded.
func (l *Loader) Canonical(name string) string {
	return l.candidates(name)[0]
}

// Load returns the parsed template called name, trying name+extension then
// name. A template that does not exist yields an error matching
// fs.ErrNotExist.
func (l *Loader) Load(name string) (*Template, error) {
	if t, ok := l.cache[name]; ok {
		return t, nil
	}
	for _, cand := range l.candidates(name) {
		if !fs.ValidPath(cand) {
			return nil, fmt.Errorf("template name %q: %w", name, fs.ErrInvalid)
		}
		if t, ok := l.cache[cand]; ok {
			l.cache[name] = t
			return t, nil
		}
		id, err := l.files.LoadFS(l.fsys, l.prefix, cand)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read template %q: %w", cand, err)
		}
		file := l.files.Get(id)
		t := &Template{Name: cand, File: file, Nodes: directive.Parse(file)}
		l.cache[cand] = t
		l.cache[name] = t
		return t, nil
	}
	return nil, fmt.Errorf("template %q: %w", name, fs.ErrNotExist)
}
