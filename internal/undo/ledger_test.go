package undo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gc "github.com/joshsymonds/mailpilot/internal/gmail"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
}

func TestLedgerRecordAndTakeLatest(t *testing.T) {
	l := NewLedger(fixedClock)

	id1 := l.Record(KindArchive, []gc.MessageID{"m1", "m2"}, "", "archived 2 from spotify")
	id2 := l.Record(KindTrash, []gc.MessageID{"m3"}, "", "deleted 1 from linkedin.com")
	require.NotEqual(t, id1, id2)

	e, err := l.TakeLatest()
	require.NoError(t, err)
	assert.Equal(t, id2, e.ID)
	assert.Equal(t, KindTrash, e.Kind)
	assert.Equal(t, []gc.MessageID{"m3"}, e.Messages)
	assert.Equal(t, fixedClock(), e.At)

	e, err = l.TakeLatest()
	require.NoError(t, err)
	assert.Equal(t, id1, e.ID)

	_, err = l.TakeLatest()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestLedgerTakeByIDIsSingleUse(t *testing.T) {
	l := NewLedger(fixedClock)
	id := l.Record(KindLabelAdd, []gc.MessageID{"m1"}, "Label_7", "labeled 1 as Reading")
	l.Record(KindArchive, []gc.MessageID{"m2"}, "", "archived 1")

	e, err := l.Take(id)
	require.NoError(t, err)
	assert.Equal(t, KindLabelAdd, e.Kind)
	assert.Equal(t, gc.LabelID("Label_7"), e.Label)

	_, err = l.Take(id)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	// The other entry is untouched.
	assert.Len(t, l.Recent(0), 1)
}

func TestLedgerRecentNewestFirst(t *testing.T) {
	l := NewLedger(fixedClock)
	l.Record(KindArchive, []gc.MessageID{"m1"}, "", "first")
	l.Record(KindArchive, []gc.MessageID{"m2"}, "", "second")
	l.Record(KindArchive, []gc.MessageID{"m3"}, "", "third")

	got := l.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Description)
	assert.Equal(t, "second", got[1].Description)

	// Recent does not consume.
	assert.Len(t, l.Recent(0), 3)
}

func TestLedgerCopiesMessageSlice(t *testing.T) {
	l := NewLedger(fixedClock)
	msgs := []gc.MessageID{"m1", "m2"}
	l.Record(KindArchive, msgs, "", "archived")
	msgs[0] = "mutated"

	e, err := l.TakeLatest()
	require.NoError(t, err)
	assert.Equal(t, []gc.MessageID{"m1", "m2"}, e.Messages)
}

func TestRegistrySessionIsolation(t *testing.T) {
	r := NewRegistry(fixedClock)

	r.Session("s1").Record(KindArchive, []gc.MessageID{"m1"}, "", "archived")

	_, err := r.Session("s2").TakeLatest()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	e, err := r.Session("s1").TakeLatest()
	require.NoError(t, err)
	assert.Equal(t, KindArchive, e.Kind)

	// Same session ID yields the same ledger.
	r.Session("s1").Record(KindTrash, []gc.MessageID{"m2"}, "", "deleted")
	assert.Len(t, r.Session("s1").Recent(0), 1)

	r.Drop("s1")
	_, err = r.Session("s1").TakeLatest()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}
