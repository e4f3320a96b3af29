package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autobrr/go-mediafix/internal/media"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "db", "index.db"), filepath.Join(dir, "records"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, "user-1", media.FormatWebM, []byte{1, 2, 3}, false, false)
	require.NoError(t, err)
	second, err := s.Put(ctx, "user-1", media.FormatMP4, []byte{4}, true, false)
	require.NoError(t, err)
	_, err = s.Put(ctx, "other", media.FormatOGG, []byte{5}, false, false)
	require.NoError(t, err)

	require.Equal(t, uint64(1), first.Seq)
	require.Equal(t, uint64(2), second.Seq)
	require.True(t, strings.HasSuffix(first.Path, ".webm"))
	require.True(t, strings.HasPrefix(filepath.Base(second.Path), "debug-user-1-"))

	records, err := s.List("user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, first.ID, records[0].ID)
	require.Equal(t, second.ID, records[1].ID)
	require.Equal(t, "mp4", records[1].Format)
	require.True(t, records[1].Debug)

	data, err := s.Load(records[0])
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)

	none, err := s.List("nobody")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestInvalidSession(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", "../etc", "a b", strings.Repeat("x", 65)} {
		_, err := s.Put(context.Background(), name, media.FormatWebM, nil, false, false)
		require.ErrorIs(t, err, ErrInvalidSession, name)
	}
	require.True(t, ValidSession("User_01-a"))
}

func TestSane(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LastSane("user")
	require.ErrorIs(t, err, ErrNoSane)

	rec, err := s.Put(ctx, "user", media.FormatWebM, []byte{1}, false, false)
	require.NoError(t, err)
	_, err = s.LastSane("user")
	require.ErrorIs(t, err, ErrNoSane)

	require.NoError(t, s.SetSane("user", rec.ID))
	sane, err := s.LastSane("user")
	require.NoError(t, err)
	require.Equal(t, rec.ID, sane.ID)

	repaired, err := s.Put(ctx, "user", media.FormatWebM, []byte{2}, false, true)
	require.NoError(t, err)
	require.NoError(t, s.SetSane("user", repaired.ID))
	sane, err = s.LastSane("user")
	require.NoError(t, err)
	require.Equal(t, repaired.ID, sane.ID)
	require.True(t, sane.Repaired)

	require.ErrorIs(t, s.SetSane("user", "missing"), ErrNotFound)
	require.ErrorIs(t, s.SetSane("nobody", rec.ID), ErrNotFound)
}

func TestLoadAllKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Put(ctx, "user", media.FormatOGG, []byte{byte(i)}, false, false)
		require.NoError(t, err)
	}
	records, err := s.List("user")
	require.NoError(t, err)

	chunks, err := s.LoadAll(ctx, records)
	require.NoError(t, err)
	require.Len(t, chunks, 10)
	for i, c := range chunks {
		require.Equal(t, []byte{byte(i)}, c)
	}

	missing, err := s.Put(ctx, "user", media.FormatOGG, []byte{10}, false, false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(missing.Path))
	_, err = s.LoadAll(ctx, append(records, *missing))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadIsCached(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Put(context.Background(), "user", media.FormatWebM, []byte{7, 7}, false, false)
	require.NoError(t, err)

	data, err := s.Load(*rec)
	require.NoError(t, err)
	require.NoError(t, os.Remove(rec.Path))

	cached, err := s.Load(*rec)
	require.NoError(t, err)
	require.Equal(t, data, cached)
}

func TestConcurrentPut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Put(ctx, "user", media.FormatWebM, []byte{1}, false, false)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := s.List("user")
	require.NoError(t, err)
	require.Len(t, records, 8)
	for i, rec := range records {
		require.Equal(t, uint64(i+1), rec.Seq)
	}
}

func TestPutCanceled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Put(ctx, "user", media.FormatWebM, []byte{1}, false, false)
	require.ErrorIs(t, err, context.Canceled)
}
