package topics

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTripStates() map[string]State {
	return map[string]State{
		"fresh":             {Pending: []string{"A", "B", "C"}, Completed: []string{}},
		"mid rotation":      {Pending: []string{"C", "A"}, Completed: []string{"B"}},
		"exhausted pending": {Pending: []string{}, Completed: []string{"B", "A", "C"}},
		"empty":             {Pending: []string{}, Completed: []string{}},
		"unicode":           {Pending: []string{"God’s Timing vs. Our Timing"}, Completed: []string{"Tell the Truth - or, at Least, Don't Lie"}},
	}
}

func TestFileBackend_RoundTrip(t *testing.T) {
	for name, want := range roundTripStates() {
		t.Run(name, func(t *testing.T) {
			b := NewFileBackend(filepath.Join(t.TempDir(), "topics.json"))
			require.NoError(t, b.Save(context.Background(), want))

			got, found, err := b.Load(context.Background())
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, want, got)
		})
	}
}

func TestFileBackend_Missing(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "nope.json"))
	_, found, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileBackend_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := NewFileBackend(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileBackend_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "topics.json")
	b := NewFileBackend(path)
	require.NoError(t, b.Save(context.Background(), State{Pending: []string{"A"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pending":["A"],"completed":[]}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileBackend_SaveFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory in place of the target makes the rename fail
	target := filepath.Join(dir, "topics.json")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep"), nil, 0o644))

	err := NewFileBackend(target).Save(context.Background(), State{Pending: []string{"B"}})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "topics.json", entries[0].Name())
}

func TestFileBackend_StoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.json")
	ctx := context.Background()

	s, err := Open(ctx, NewFileBackend(path), []string{"A", "B", "C"})
	require.NoError(t, err)
	topic, err := s.Next(ctx)
	require.NoError(t, err)

	reopened, err := Open(ctx, NewFileBackend(path), []string{"other"})
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), reopened.Snapshot())
	assert.Equal(t, []string{topic}, reopened.Snapshot().Completed)
}

func newTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "topics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	for name, want := range roundTripStates() {
		t.Run(name, func(t *testing.T) {
			b := newTestSQLite(t)
			require.NoError(t, b.Save(context.Background(), want))

			got, found, err := b.Load(context.Background())
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, want, got)
		})
	}
}

func TestSQLiteBackend_UninitializedIsNotFound(t *testing.T) {
	_, found, err := newTestSQLite(t).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteBackend_Overwrite(t *testing.T) {
	b := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, b.Save(ctx, State{Pending: []string{"A", "B"}, Completed: []string{}}))
	require.NoError(t, b.Save(ctx, State{Pending: []string{"B"}, Completed: []string{"A"}}))

	got, _, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{Pending: []string{"B"}, Completed: []string{"A"}}, got)
}

func TestSQLiteBackend_DuplicateRollsBack(t *testing.T) {
	b := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, b.Save(ctx, State{Pending: []string{"A"}, Completed: []string{}}))

	err := b.Save(ctx, State{Pending: []string{"B"}, Completed: []string{"B"}})
	require.Error(t, err)

	got, _, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.Pending)
}

func TestSQLiteBackend_StoreRotation(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, newTestSQLite(t), []string{"A", "B"})
	require.NoError(t, err)

	first, err := s.Next(ctx)
	require.NoError(t, err)
	second, err := s.Next(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, []string{first, second})
}
