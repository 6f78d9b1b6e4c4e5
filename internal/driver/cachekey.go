package driver

import (
	"io/fs"
	"strconv"
	"strings"

	"paramgen/internal/contract"
	"paramgen/internal/params"
	"paramgen/internal/project"
	"paramgen/internal/source"
)

type cacheKey struct {
	digest project.Digest
}

// makeCacheKey digests every input of a run: the request options, the
// descriptor bytes read so far, the selected parameters, the template tree
// and the built-in templates.
func makeCacheKey(req *Request, files *source.FileSet, table *params.Table, fsys fs.FS) (cacheKey, error) {
	tree, err := project.DigestFS(fsys)
	if err != nil {
		return cacheKey{}, err
	}
	builtin, err := project.DigestFS(contract.FS())
	if err != nil {
		return cacheKey{}, err
	}

	o := req.Options
	opts := []string{
		"schema", strconv.Itoa(int(diskCacheSchemaVersion)),
		"name", req.name(),
		"root", req.Root,
		"prefix", req.TemplatesDir,
		"ext", o.Extension,
		"depth", strconv.Itoa(o.MaxDepth),
		"indent", strconv.FormatBool(o.ContinueIndentation),
		"scaffold", strconv.FormatBool(o.ScaffoldMissing),
		"contract", strconv.FormatBool(!o.NoContract),
		"subsystem", req.Subsystem,
	}
	for _, kv := range req.Vars {
		opts = append(opts, "var", kv[0], kv[1])
	}
	return cacheKey{digest: project.Combine(project.DigestStrings(opts...), loadedDigest(files), tableDigest(table), tree, builtin)}, nil
}

// loadedDigest covers the files read before the lookup. Their diagnostics
// are part of the cached Bag, so any edit must miss.
func loadedDigest(files *source.FileSet) project.Digest {
	parts := make([]string, 0, 2*files.Len())
	for i := 0; i < files.Len(); i++ {
		f := files.Get(source.FileID(i))
		parts = append(parts, f.Path, string(f.Content))
	}
	return project.DigestStrings(parts...)
}

// tableDigest covers every descriptor field that reaches the output.
func tableDigest(t *params.Table) project.Digest {
	parts := make([]string, 0, 8*t.Len())
	for _, d := range t.Params {
		parts = append(parts,
			d.Identifier,
			d.Name,
			d.DataType,
			strconv.Itoa(d.Bits),
			d.Default,
			strconv.FormatBool(d.HasDefault),
			strconv.Itoa(d.ID),
			strings.Join(d.Tags, "|"),
		)
	}
	return project.DigestStrings(parts...)
}
