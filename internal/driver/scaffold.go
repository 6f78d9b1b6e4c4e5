package driver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// dirScaffolder creates blank sub-templates under dir.
type dirScaffolder struct {
	dir string
}

func (s dirScaffolder) Scaffold(name string) error {
	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// #nosec G304 -- name comes from a template under dir
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return f.Close()
}
