package diff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/qcheck/pkg/qcheck/manifest"
	"github.com/jamesainslie/qcheck/pkg/qcheck/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	digestX = "9dd4e461268c8034f5c8564e155c67a6"
	digestY = "415290769594460e2e485922904f345d"
)

type fixture struct {
	root    string
	store   *manifest.Store
	builder *manifest.Builder
	engine  *Engine
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	s, err := scanner.New(scanner.DefaultOptions())
	require.NoError(t, err)

	store := manifest.NewStore()
	builder := manifest.NewBuilder(s)
	return &fixture{root: root, store: store, builder: builder, engine: NewEngine(store, builder)}
}

func (f *fixture) create(t *testing.T, kind manifest.Kind) {
	t.Helper()
	m, err := f.builder.Build(context.Background(), f.root, kind, nil)
	require.NoError(t, err)
	outcome, err := f.store.Write(f.root, m)
	require.NoError(t, err)
	require.Equal(t, manifest.Written, outcome)
}

func (f *fixture) abs(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func TestCheckChecksums_SelfCheckIsClean(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x", "b.txt": "y", "sub/c.txt": "zz"})
	f.create(t, manifest.Checksum)

	res, err := f.engine.CheckChecksums(context.Background(), f.root, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Mismatched)
	assert.Empty(t, res.Missing)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "sub/c.txt"}, res.Matched)
	for _, l := range res.Lines {
		assert.Equal(t, StatusOK, l.Status)
	}
}

func TestCheckChecksums_ConcreteScenario(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	f.create(t, manifest.Checksum)

	var streamed []string
	res, err := f.engine.CheckChecksums(context.Background(), f.root, func(l Line) {
		streamed = append(streamed, l.String())
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.txt:" + digestX + " OK", "b.txt:" + digestY + " OK"}, streamed)
	assert.Len(t, res.Mismatched, 0)
	assert.Len(t, res.Missing, 0)
}

func TestCheckChecksums_ModifiedFileFails(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	f.create(t, manifest.Checksum)

	require.NoError(t, os.WriteFile(f.abs("a.txt"), []byte("X"), 0o644))

	res, err := f.engine.CheckChecksums(context.Background(), f.root, nil)
	require.NoError(t, err)

	require.Len(t, res.Mismatched, 1)
	m := res.Mismatched[0]
	assert.Equal(t, "a.txt", m.Path)
	assert.Equal(t, digestX, m.OldDigest)
	assert.NotEqual(t, m.OldDigest, m.NewDigest)
	assert.Len(t, m.NewDigest, 32)
	assert.Equal(t, []string{"b.txt"}, res.Matched)
	assert.Empty(t, res.Missing)
}

func TestCheckChecksums_DeletedFileNotFound(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	f.create(t, manifest.Checksum)

	require.NoError(t, os.Remove(f.abs("b.txt")))

	res, err := f.engine.CheckChecksums(context.Background(), f.root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"b.txt"}, res.Missing)
	assert.Empty(t, res.Mismatched)

	var line Line
	for _, l := range res.Lines {
		if l.Path == "b.txt" {
			line = l
		}
	}
	assert.Equal(t, StatusNotFound, line.Status)
	assert.Equal(t, "b.txt: NOT FOUND", line.String())
}

func TestCheckChecksums_NewFilesIgnored(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x"})
	f.create(t, manifest.Checksum)

	require.NoError(t, os.WriteFile(f.abs("new.txt"), []byte("n"), 0o644))

	res, err := f.engine.CheckChecksums(context.Background(), f.root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, res.Matched)
	assert.Len(t, res.Lines, 1)
}

func TestCheckChecksums_LinesFollowManifestOrder(t *testing.T) {
	f := newFixture(t, map[string]string{"z.txt": "x", "a.txt": "y", "m.txt": "x"})
	content := "z.txt:" + digestX + "\na.txt:" + digestY + "\nm.txt:" + digestX + "\n"
	require.NoError(t, os.WriteFile(f.abs("checks.md5"), []byte(content), 0o644))

	var order []string
	res, err := f.engine.CheckChecksums(context.Background(), f.root, func(l Line) {
		order = append(order, l.Path)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"z.txt", "a.txt", "m.txt"}, order)
	assert.Equal(t, order, res.Matched)
}

func TestCheckChecksums_UnreadableStoredDigestFails(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x"})
	require.NoError(t, os.WriteFile(f.abs("checks.md5"), []byte("a.txt:\n"), 0o644))

	res, err := f.engine.CheckChecksums(context.Background(), f.root, nil)
	require.NoError(t, err)

	require.Len(t, res.Mismatched, 1)
	assert.Equal(t, "", res.Mismatched[0].OldDigest)
	assert.Equal(t, digestX, res.Mismatched[0].NewDigest)
}

func TestCheckChecksums_NoManifest(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x"})

	called := false
	_, err := f.engine.CheckChecksums(context.Background(), f.root, func(Line) { called = true })
	require.Error(t, err)
	assert.True(t, errors.Is(err, manifest.ErrNotFound))
	assert.False(t, called)
}

func TestCheckChecksums_ParseError(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x"})
	require.NoError(t, os.WriteFile(f.abs("checks.md5"), []byte("garbage\n"), 0o644))

	_, err := f.engine.CheckChecksums(context.Background(), f.root, nil)
	var parseErr *manifest.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestCheckTree_NoManifestSkipsWalk(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x", "b.txt": "y"})

	walked := 0
	_, err := f.engine.CheckTree(context.Background(), f.root, func(Line) { walked++ }, nil)
	require.ErrorIs(t, err, ErrNoManifest)
	assert.Zero(t, walked)
}

func TestCheckTree_UnlistedFilesAreNotFound(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x", "b.txt": "y"})
	f.create(t, manifest.Tree)

	require.NoError(t, os.WriteFile(f.abs("new.txt"), []byte("n"), 0o644))
	require.NoError(t, os.Remove(f.abs("b.txt")))

	var walked, classified []string
	res, err := f.engine.CheckTree(context.Background(), f.root,
		func(l Line) { walked = append(walked, l.Path) },
		func(l Line) { classified = append(classified, l.Path) })
	require.NoError(t, err)

	// The manifest file itself is walked and is not listed in itself.
	assert.ElementsMatch(t, []string{f.abs("new.txt"), f.abs("checks.tree")}, res.Missing)
	assert.Equal(t, []string{f.abs("a.txt")}, res.Matched)

	// The removed b.txt is listed but absent; tree checks do not report it.
	for _, l := range res.Lines {
		assert.NotEqual(t, f.abs("b.txt"), l.Path)
	}

	// Classification follows walk order exactly.
	assert.Equal(t, walked, classified)
}

func TestCheckTree_ExcludedManifestIsClean(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "x", "sub/b.txt": "y"})

	s, err := scanner.New(scanner.Options{Exclude: []string{"checks.tree"}})
	require.NoError(t, err)
	f.builder = manifest.NewBuilder(s)
	f.engine = NewEngine(f.store, f.builder)
	f.create(t, manifest.Tree)

	res, err := f.engine.CheckTree(context.Background(), f.root, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.ElementsMatch(t, []string{f.abs("a.txt"), f.abs("sub/b.txt")}, res.Matched)
}

func TestLineString(t *testing.T) {
	tests := []struct {
		line Line
		want string
	}{
		{Line{Path: "a.txt", Digest: digestX, HasDigest: true}, "a.txt:" + digestX},
		{Line{Path: "a.txt", Digest: digestX, HasDigest: true, Status: StatusOK}, "a.txt:" + digestX + " OK"},
		{Line{Path: "a.txt", HasDigest: true, Status: StatusNotFound}, "a.txt: NOT FOUND"},
		{Line{Path: "/d/a.txt"}, "/d/a.txt"},
		{Line{Path: "/d/a.txt", Status: StatusNotFound}, "/d/a.txt NOT FOUND"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.line.String())
	}
}
