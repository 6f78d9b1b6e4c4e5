package driver

import (
	"context"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paramgen/internal/diag"
	"paramgen/internal/project"
)

func TestDiskCachePutGet(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)

	key := project.DigestStrings("k")
	var out DiskPayload
	hit, err := cache.Get(key, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	in := &DiskPayload{
		Schema: diskCacheSchemaVersion,
		Name:   "a.c",
		Output: "int x;\n",
		Files:  []CachedFile{{Path: "templates/root.cgen_template", Content: []byte("int x;\n")}},
		Diagnostics: []diag.Diagnostic{{
			Severity: diag.SevWarning,
			Code:     diag.TplUnresolvedVar,
			Message:  "unresolved variable \"v\"",
		}},
	}
	require.NoError(t, cache.Put(key, in))

	hit, err = cache.Get(key, &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, in.Output, out.Output)
	assert.Equal(t, in.Files, out.Files)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, in.Diagnostics[0].Code, out.Diagnostics[0].Code)

	require.NoError(t, cache.DropAll())
	hit, err = cache.Get(key, &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDiskCacheIgnoresOtherSchemas(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	key := project.DigestStrings("old")
	require.NoError(t, cache.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion + 1}))

	var out DiskPayload
	hit, err := cache.Get(key, &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNilDiskCache(t *testing.T) {
	var cache *DiskCache
	require.NoError(t, cache.Put(project.Digest{}, &DiskPayload{}))
	hit, err := cache.Get(project.Digest{}, &DiskPayload{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, cache.Dir())
}

func TestGenerateUsesCache(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)

	req := newRequest(t, map[string]string{
		"root.cgen_template": "value=$missing$\n$mem_pool$\n",
	})
	req.Cache = cache

	first, err := Generate(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, []diag.Code{diag.TplUnresolvedVar}, codes(first.Bag))

	second, err := Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Bag.Items(), second.Bag.Items())

	// Positions resolve against the restored files.
	d := second.Bag.Items()[0]
	start, _ := second.Files.Resolve(d.Primary)
	assert.Equal(t, uint32(1), start.Line)
	assert.Equal(t, "templates/root.cgen_template", second.Files.Get(d.Primary.File).Path)

	req.Templates.(fstest.MapFS)["root.cgen_template"] = &fstest.MapFile{Data: []byte("changed\n")}
	third, err := Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, "changed\n", third.Output)

	req.Subsystem = "EPS"
	fourth, err := Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, fourth.Cached)
}

func TestGenerateCacheKeepsDescriptorWarnings(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	req := newRequest(t, map[string]string{"root.cgen_template": "$p-line$ [all] p_name\n"})
	req.Cache = cache

	first, err := Generate(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, codes(first.Bag))

	edited := descriptor + "$param$ testing_2_param_id 1\nstray line\n"
	require.NoError(t, os.WriteFile(req.Descriptor, []byte(edited), 0o644))

	second, err := Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Cached)
	want := codes(second.Bag)
	assert.Contains(t, want, diag.ParDuplicate)
	assert.Contains(t, want, diag.ParStrayLine)

	third, err := Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.Equal(t, want, codes(third.Bag))
}

func TestGenerateDoesNotCacheFailures(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	req := newRequest(t, map[string]string{"root.cgen_template": "$template$ absent\n"})
	req.Cache = cache

	for range 2 {
		res, err := Generate(context.Background(), req)
		require.Error(t, err)
		assert.False(t, res.Cached)
	}
}
