// Package undo records reversible mailbox mutations so a later command can
// put messages back where they were.
package undo

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	gc "github.com/joshsymonds/mailpilot/internal/gmail"
)

var ErrNothingToUndo = errors.New("nothing to undo")

// Kind names the mutation that was applied, which determines the reversal.
type Kind string

const (
	// KindArchive means INBOX was removed; reversal re-adds it.
	KindArchive Kind = "archive"
	// KindTrash means messages were trashed; reversal untrashes and
	// restores INBOX.
	KindTrash Kind = "trash"
	// KindLabelAdd means a label was applied; reversal removes it.
	KindLabelAdd Kind = "label_add"
)

// Entry is one recorded mutation. Messages holds only the IDs actually
// mutated, so a partially failed batch reverses exactly what succeeded.
type Entry struct {
	ID          string
	Kind        Kind
	Messages    []gc.MessageID
	Label       gc.LabelID
	Description string
	At          time.Time
}

// Ledger is a per-session stack of reversible mutations. Entries are
// single-use: taking one removes it, so the same undo cannot run twice.
type Ledger struct {
	mu      sync.Mutex
	clock   func() time.Time
	entries []Entry
}

func NewLedger(clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{clock: clock}
}

// Record appends an entry and returns its generated ID.
func (l *Ledger) Record(kind Kind, msgs []gc.MessageID, label gc.LabelID, description string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		ID:          uuid.NewString(),
		Kind:        kind,
		Messages:    append([]gc.MessageID(nil), msgs...),
		Label:       label,
		Description: description,
		At:          l.clock(),
	}
	l.entries = append(l.entries, e)
	return e.ID
}

// TakeLatest removes and returns the most recent entry.
func (l *Ledger) TakeLatest() (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return Entry{}, ErrNothingToUndo
	}
	e := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	return e, nil
}

// Take removes and returns the entry with the given ID.
func (l *Ledger) Take(id string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return e, nil
		}
	}
	return Entry{}, ErrNothingToUndo
}

// Recent returns up to n entries, newest first, without consuming them.
func (l *Ledger) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Registry holds one ledger per session. Sessions never share undo state.
type Registry struct {
	mu      sync.Mutex
	clock   func() time.Time
	ledgers map[string]*Ledger
}

func NewRegistry(clock func() time.Time) *Registry {
	return &Registry{clock: clock, ledgers: make(map[string]*Ledger)}
}

// Session returns the ledger for sessionID, creating it on first use.
func (r *Registry) Session(sessionID string) *Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.ledgers[sessionID]
	if !ok {
		l = NewLedger(r.clock)
		r.ledgers[sessionID] = l
	}
	return l
}

// Drop discards a session's ledger.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ledgers, sessionID)
}
