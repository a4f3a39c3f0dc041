package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	j := openTestJournal(t)

	stored, err := j.Record(context.Background(), Entry{Action: "create", Target: "acidcluster", Outcome: "success"})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.At.IsZero())
}

func TestListNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, action := range []string{"create", "add-others", "remove-node"} {
		_, err := j.Record(ctx, Entry{
			Action:  action,
			Outcome: "success",
			At:      base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "remove-node", entries[0].Action)
	assert.Equal(t, "create", entries[2].Action)
}

func TestListLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := j.Record(ctx, Entry{Action: "join", Outcome: "failed"})
		require.NoError(t, err)
	}

	entries, err := j.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListEmpty(t *testing.T) {
	j := openTestJournal(t)

	entries, err := j.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	in := Entry{Action: "remove-node", Target: "node3", Outcome: "failed", Detail: "quorum unsafe"}
	_, err := j.Record(ctx, in)
	require.NoError(t, err)

	entries, err := j.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "remove-node", entries[0].Action)
	assert.Equal(t, "node3", entries[0].Target)
	assert.Equal(t, "quorum unsafe", entries[0].Detail)
}
