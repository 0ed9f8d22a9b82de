package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-ai/cadenza/internal/types"
)

func testRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := NewRegistry(filepath.Join(dir, "artifacts.json"))
	require.NoError(t, err)
	return r, dir
}

func writeArtifactFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r, dir := testRegistry(t)
	path := writeArtifactFile(t, dir, "core.a", "binary-bytes")

	id, err := r.Register("core.a", path, TypeStaticLibrary, "core", "ninja", "cfg1", []string{"core.o"})
	require.NoError(t, err)
	assert.Len(t, id, 16)

	a, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "core.a", a.Name)
	assert.Equal(t, path, a.Path)
	assert.Equal(t, TypeStaticLibrary, a.Type)
	assert.Equal(t, int64(len("binary-bytes")), a.Size)
	assert.Equal(t, "cfg1", a.ConfigHash)
	assert.Equal(t, FileSHA256(path), a.ContentHash)
	assert.Equal(t, []string{"core.o"}, a.Dependencies)
}

func TestRegistry_RegisterMissingFile(t *testing.T) {
	r, dir := testRegistry(t)

	_, err := r.Register("ghost", filepath.Join(dir, "ghost.so"), TypeSharedLibrary, "", "", "cfg1", nil)
	require.Error(t, err)
	assert.Equal(t, types.ARTIFACT_MISSING, types.CodeOf(err))
}

func TestRegistry_GetNotFound(t *testing.T) {
	r, _ := testRegistry(t)

	_, err := r.Get("deadbeefdeadbeef")
	require.Error(t, err)
	assert.Equal(t, types.ARTIFACT_NOT_FOUND, types.CodeOf(err))
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "artifacts.json")
	path := writeArtifactFile(t, dir, "app", "exe")

	r1, err := NewRegistry(storePath)
	require.NoError(t, err)
	id, err := r1.Register("app", path, TypeExecutable, "app", "make", "cfg1", nil)
	require.NoError(t, err)

	r2, err := NewRegistry(storePath)
	require.NoError(t, err)
	a, err := r2.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "app", a.Name)
}

func TestRegistry_CorruptStoreStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "artifacts.json")
	require.NoError(t, os.WriteFile(storePath, []byte("{not json"), 0o644))

	r, err := NewRegistry(storePath)
	require.NoError(t, err)
	assert.Empty(t, r.List())
}

func TestRegistry_FindByPathReturnsNewest(t *testing.T) {
	r, dir := testRegistry(t)
	path := writeArtifactFile(t, dir, "lib.so", "v1")

	first, err := r.Register("lib.so", path, TypeSharedLibrary, "", "", "cfg1", nil)
	require.NoError(t, err)
	second, err := r.Register("lib.so", path, TypeSharedLibrary, "", "", "cfg2", nil)
	require.NoError(t, err)

	// Register stamps at nanosecond granularity so a tie is unlikely, but
	// force distinct timestamps to keep the assertion stable.
	a, err := r.Get(second)
	require.NoError(t, err)
	if b, berr := r.Get(first); berr == nil && !a.Timestamp.After(b.Timestamp) {
		t.Skip("timestamps collided")
	}

	found := r.FindByPath(path)
	require.NotNil(t, found)
	assert.Equal(t, second, found.ID)
	assert.Nil(t, r.FindByPath(filepath.Join(dir, "other")))
}

func TestRegistry_IsFresh(t *testing.T) {
	r, dir := testRegistry(t)
	out := writeArtifactFile(t, dir, "mod.o", "obj")
	src := writeArtifactFile(t, dir, "mod.c", "source")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))

	_, err := r.Register("mod.o", out, TypeObjectFile, "mod", "cc", "cfg1", nil)
	require.NoError(t, err)

	assert.True(t, r.IsFresh(out, []string{src}, "cfg1"))
}

func TestRegistry_IsFresh_ConfigChanged(t *testing.T) {
	r, dir := testRegistry(t)
	out := writeArtifactFile(t, dir, "mod.o", "obj")
	src := writeArtifactFile(t, dir, "mod.c", "source")

	_, err := r.Register("mod.o", out, TypeObjectFile, "mod", "cc", "cfg1", nil)
	require.NoError(t, err)

	assert.False(t, r.IsFresh(out, []string{src}, "cfg2"))
}

func TestRegistry_IsFresh_SourceNewer(t *testing.T) {
	r, dir := testRegistry(t)
	out := writeArtifactFile(t, dir, "mod.o", "obj")
	src := writeArtifactFile(t, dir, "mod.c", "source")

	_, err := r.Register("mod.o", out, TypeObjectFile, "mod", "cc", "cfg1", nil)
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))

	assert.False(t, r.IsFresh(out, []string{src}, "cfg1"))
}

func TestRegistry_IsFresh_SourceNewerThanFileButOlderThanRegistration(t *testing.T) {
	r, dir := testRegistry(t)
	out := writeArtifactFile(t, dir, "mod.o", "obj")
	src := writeArtifactFile(t, dir, "mod.c", "source")

	// The source was touched after the artifact file was written but
	// before it was registered. Freshness compares against the file
	// mtime, so the artifact must be rebuilt.
	now := time.Now()
	require.NoError(t, os.Chtimes(out, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(src, now.Add(-time.Hour), now.Add(-time.Hour)))

	_, err := r.Register("mod.o", out, TypeObjectFile, "mod", "cc", "cfg1", nil)
	require.NoError(t, err)

	assert.False(t, r.IsFresh(out, []string{src}, "cfg1"))
}

func TestRegistry_IsFresh_ArtifactDeleted(t *testing.T) {
	r, dir := testRegistry(t)
	out := writeArtifactFile(t, dir, "mod.o", "obj")

	_, err := r.Register("mod.o", out, TypeObjectFile, "mod", "cc", "cfg1", nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(out))

	assert.False(t, r.IsFresh(out, nil, "cfg1"))
}

func TestRegistry_IsFresh_SourceMissing(t *testing.T) {
	r, dir := testRegistry(t)
	out := writeArtifactFile(t, dir, "mod.o", "obj")

	_, err := r.Register("mod.o", out, TypeObjectFile, "mod", "cc", "cfg1", nil)
	require.NoError(t, err)

	assert.False(t, r.IsFresh(out, []string{filepath.Join(dir, "gone.c")}, "cfg1"))
}

func TestRegistry_IsFresh_Unregistered(t *testing.T) {
	r, dir := testRegistry(t)
	out := writeArtifactFile(t, dir, "stray.o", "obj")

	assert.False(t, r.IsFresh(out, nil, "cfg1"))
}

func TestRegistry_RemoveStale(t *testing.T) {
	r, dir := testRegistry(t)
	a := writeArtifactFile(t, dir, "a.o", "a")
	b := writeArtifactFile(t, dir, "b.o", "b")

	_, err := r.Register("a.o", a, TypeObjectFile, "", "", "old", nil)
	require.NoError(t, err)
	keep, err := r.Register("b.o", b, TypeObjectFile, "", "", "new", nil)
	require.NoError(t, err)

	removed, err := r.RemoveStale("new")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = r.Get(keep)
	assert.NoError(t, err)
	assert.Len(t, r.List(), 1)
}

func TestRegistry_RemoveMissing(t *testing.T) {
	r, dir := testRegistry(t)
	a := writeArtifactFile(t, dir, "a.o", "a")
	b := writeArtifactFile(t, dir, "b.o", "b")

	_, err := r.Register("a.o", a, TypeObjectFile, "", "", "cfg", nil)
	require.NoError(t, err)
	_, err = r.Register("b.o", b, TypeObjectFile, "", "", "cfg", nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(a))

	removed, err := r.RemoveMissing()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, r.List(), 1)
}

func TestRegistry_CleanupOlderThan(t *testing.T) {
	r, dir := testRegistry(t)
	a := writeArtifactFile(t, dir, "a.o", "a")

	id, err := r.Register("a.o", a, TypeObjectFile, "", "", "cfg", nil)
	require.NoError(t, err)

	removed, err := r.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = r.CleanupOlderThan(-time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = r.Get(id)
	assert.True(t, errors.Is(err, types.NewError(types.ARTIFACT_NOT_FOUND, "")))
}

func TestRegistry_Filters(t *testing.T) {
	r, dir := testRegistry(t)
	a := writeArtifactFile(t, dir, "a.o", "a")
	b := writeArtifactFile(t, dir, "b.so", "b")

	_, err := r.Register("a.o", a, TypeObjectFile, "core", "cc", "cfg", nil)
	require.NoError(t, err)
	_, err = r.Register("b.so", b, TypeSharedLibrary, "ui", "ld", "cfg", nil)
	require.NoError(t, err)

	assert.Len(t, r.ByPackage("core"), 1)
	assert.Len(t, r.ByType(TypeSharedLibrary), 1)
	assert.Len(t, r.ByBuildMethod("cc"), 1)
	assert.Empty(t, r.ByPackage("nope"))
}

func TestRegistry_UsageStats(t *testing.T) {
	r, dir := testRegistry(t)
	a := writeArtifactFile(t, dir, "a.o", "aaaa")
	b := writeArtifactFile(t, dir, "b.o", "bb")

	_, err := r.Register("a.o", a, TypeObjectFile, "core", "cc", "cfg", nil)
	require.NoError(t, err)
	_, err = r.Register("b.o", b, TypeObjectFile, "core", "cc", "cfg", nil)
	require.NoError(t, err)

	stats := r.UsageStats()
	assert.Equal(t, 2, stats.TotalArtifacts)
	assert.Equal(t, int64(6), stats.TotalSize)
	assert.Equal(t, 2, stats.ByType[string(TypeObjectFile)])
	assert.Equal(t, 2, stats.ByPackage["core"])
	require.NotNil(t, stats.OldestArtifact)
	require.NotNil(t, stats.NewestArtifact)
	assert.False(t, stats.NewestArtifact.Before(*stats.OldestArtifact))
}

func TestConfigHash_Deterministic(t *testing.T) {
	h1 := ConfigHash(map[string]string{"cc": "clang", "opt": "-O2"})
	h2 := ConfigHash(map[string]string{"opt": "-O2", "cc": "clang"})
	h3 := ConfigHash(map[string]string{"opt": "-O3", "cc": "clang"})

	assert.Len(t, h1, 16)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestFileSHA256(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifactFile(t, dir, "f", "hello")

	// sha256("hello")
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		FileSHA256(path))
	assert.Empty(t, FileSHA256(filepath.Join(dir, "missing")))
}
