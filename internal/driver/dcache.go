package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"paramgen/internal/diag"
	"paramgen/internal/project"
	"paramgen/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores generation results on disk, keyed by the digest of
// everything that can influence the output. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedFile is a file of the run's FileSet, kept so that cached
// diagnostics resolve to the same positions.
type CachedFile struct {
	Path    string
	Content []byte
	Flags   uint8
}

// DiskPayload is the cached outcome of one successful generation run.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Name   string
	Output string

	// Files in FileID order; diagnostic spans index into them.
	Files       []CachedFile
	Diagnostics []diag.Diagnostic
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt uses dir as the cache directory, creating it if needed.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "gen", key.String()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	err = os.Rename(tmp, p)
	return err
}

// Get reads and deserializes a payload from the disk cache. Entries written
// by another schema version are misses.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// resultToDiskPayload captures res for caching.
func resultToDiskPayload(res *Result) *DiskPayload {
	payload := &DiskPayload{
		Schema:      diskCacheSchemaVersion,
		Name:        res.Name,
		Output:      res.Output,
		Diagnostics: append([]diag.Diagnostic(nil), res.Bag.Items()...),
	}
	for i := 0; i < res.Files.Len(); i++ {
		f := res.Files.Get(source.FileID(i))
		payload.Files = append(payload.Files, CachedFile{
			Path:    f.Path,
			Content: f.Content,
			Flags:   uint8(f.Flags),
		})
	}
	return payload
}

// restoreResult rebuilds the FileSet and Bag of res from payload.
func restoreResult(res *Result, payload *DiskPayload, baseDir string, maxDiagnostics int) {
	files := source.NewFileSetWithBase(baseDir)
	for _, f := range payload.Files {
		files.Add(f.Path, f.Content, source.FileFlags(f.Flags))
	}
	bag := diag.NewBag(maxDiagnostics)
	for _, d := range payload.Diagnostics {
		bag.Add(d)
	}
	res.Files = files
	res.Bag = bag
	res.Output = payload.Output
	res.Cached = true
}
