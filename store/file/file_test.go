package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/core"
)

func testSnapshot(sessionID string) *core.GraphSnapshot {
	return &core.GraphSnapshot{
		SessionID: sessionID,
		Created:   time.Now().UTC().Truncate(time.Millisecond),
		Records: []core.CallRecord{
			{
				ID:      1,
				Node:    core.NodeIdentity{Kind: core.KindTool, DisplayName: "Search", ToolName: "search"},
				Start:   time.Now().UTC().Truncate(time.Millisecond),
				Outcome: core.Outcome{Kind: core.OutcomeFailure, ErrorKind: "rate_limited", ErrorMessage: "slow down"},
			},
		},
	}
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	replaced, err := s.Save(ctx, testSnapshot("sess-1"))
	require.NoError(t, err)
	assert.False(t, replaced)

	snap, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", snap.SessionID)
	require.Len(t, snap.Records, 1)

	rec := snap.Records[0]
	assert.Equal(t, core.KindTool, rec.Node.Kind)
	assert.Equal(t, core.OutcomeFailure, rec.Outcome.Kind)
	assert.Equal(t, "rate_limited", rec.Outcome.ErrorKind)
}

func TestStore_SaveReportsReplacement(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	_, err := s.Save(ctx, testSnapshot("sess-1"))
	require.NoError(t, err)

	replaced, err := s.Save(ctx, testSnapshot("sess-1"))
	require.NoError(t, err)
	assert.True(t, replaced)
}

func TestStore_LoadUnknown(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Load(context.Background(), "absent")

	var nfe *core.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "session", nfe.Kind)
}

func TestStore_RejectsUnsafeSessionIDs(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		snap := testSnapshot(id)
		_, err := s.Save(ctx, snap)
		assert.Error(t, err, "id %q", id)

		_, err = s.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []string{"alpha", "zeta"} {
		_, err := s.Save(ctx, testSnapshot(id))
		require.NoError(t, err)
	}

	// Stray files without the snapshot extension are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	ids, err = s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "zeta"}, ids)
}

func TestStore_NoStaleTempFilesAfterSave(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	_, err := s.Save(context.Background(), testSnapshot("sess-1"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-1.json", entries[0].Name())
}
