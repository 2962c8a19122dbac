package history

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fixedClock returns a clock starting at base that the test can advance.
func fixedClock(base time.Time) (func() time.Time, func(time.Duration)) {
	now := base
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestPut_AssignsIDAndTimestamp(t *testing.T) {
	s := openTestStore(t)

	r := &Record{Mode: "check", Root: "/data"}
	require.NoError(t, s.Put(r))

	assert.Len(t, r.ID, 36)
	assert.False(t, r.Timestamp.IsZero())
}

func TestGet(t *testing.T) {
	s := openTestStore(t)

	r := &Record{
		Mode:     "check",
		Root:     "/data",
		Files:    3,
		Bytes:    1024,
		Matched:  1,
		Failed:   []string{"a.txt"},
		NotFound: []string{"b.txt"},
		Duration: 2 * time.Second,
	}
	require.NoError(t, s.Put(r))

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "/data", got.Root)
	assert.Equal(t, []string{"a.txt"}, got.Failed)
	assert.Equal(t, []string{"b.txt"}, got.NotFound)
	assert.Equal(t, 2*time.Second, got.Duration)
	assert.True(t, r.Timestamp.Equal(got.Timestamp))
	assert.False(t, got.Clean())
}

func TestGet_ByPrefix(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(&Record{ID: "aaaa-1111", Mode: "check"}))
	require.NoError(t, s.Put(&Record{ID: "aaaa-2222", Mode: "create"}))
	require.NoError(t, s.Put(&Record{ID: "bbbb-3333", Mode: "checktree"}))

	got, err := s.Get("bbbb")
	require.NoError(t, err)
	assert.Equal(t, "checktree", got.Mode)

	_, err = s.Get("aaaa")
	assert.ErrorIs(t, err, ErrAmbiguousID)

	_, err = s.Get("cccc")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	clock, advance := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.now = clock

	for i := 0; i < 5; i++ {
		root := "/a"
		if i%2 == 1 {
			root = "/b"
		}
		require.NoError(t, s.Put(&Record{Mode: "check", Root: root, Files: i}))
		advance(time.Minute)
	}

	all, err := s.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, r := range all {
		assert.Equal(t, 4-i, r.Files)
	}

	limited, err := s.List("", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 4, limited[0].Files)

	onlyB, err := s.List("/b", 0)
	require.NoError(t, err)
	require.Len(t, onlyB, 2)
	assert.Equal(t, 3, onlyB[0].Files)
	assert.Equal(t, 1, onlyB[1].Files)
}

func TestList_Empty(t *testing.T) {
	s := openTestStore(t)

	records, err := s.List("", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	clock, advance := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.now = clock

	old := &Record{Mode: "check", Root: "/a"}
	require.NoError(t, s.Put(old))
	advance(48 * time.Hour)
	recent := &Record{Mode: "check", Root: "/a"}
	require.NoError(t, s.Put(recent))
	advance(time.Hour)

	removed, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(recent.ID)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, got.ID)

	removed, err = s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCodec_CompressesLargeRecords(t *testing.T) {
	c, err := newCodec()
	require.NoError(t, err)
	defer c.close()

	small := &Record{ID: "x", Mode: "check"}
	data, err := c.encode(small)
	require.NoError(t, err)
	assert.Equal(t, encodingGob, data[0])

	large := &Record{ID: "y", Mode: "check"}
	for i := 0; i < 500; i++ {
		large.NotFound = append(large.NotFound, fmt.Sprintf("photos/2026/img_%04d.jpg", i))
	}
	data, err = c.encode(large)
	require.NoError(t, err)
	assert.Equal(t, encodingGobZstd, data[0])

	var got Record
	require.NoError(t, c.decode(data, &got))
	assert.Equal(t, large.NotFound, got.NotFound)
}

func TestCodec_RejectsBadValues(t *testing.T) {
	c, err := newCodec()
	require.NoError(t, err)
	defer c.close()

	var r Record
	assert.Error(t, c.decode(nil, &r))

	err = c.decode([]byte{9, 1, 2}, &r)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown encoding"))
}

func TestRecordKeyOrdering(t *testing.T) {
	early := recordKey(time.Unix(100, 0), "b")
	late := recordKey(time.Unix(200, 0), "a")
	assert.Negative(t, strings.Compare(string(early), string(late)))
	assert.True(t, recordTime(late).Equal(time.Unix(200, 0)))
}
