package engine

import (
	"context"
	"errors"
	"fmt"

	gc "github.com/joshsymonds/mailpilot/internal/gmail"
	"github.com/joshsymonds/mailpilot/internal/retry"
	"github.com/joshsymonds/mailpilot/internal/undo"
)

// reverseOps maps a recorded mutation back to the label edits that undo it.
func reverseOps(e undo.Entry) (gc.ModifyOps, error) {
	switch e.Kind {
	case undo.KindArchive:
		return gc.ModifyOps{AddLabels: []gc.LabelID{gc.LabelInbox}}, nil
	case undo.KindTrash:
		return gc.ModifyOps{
			RemoveLabels: []gc.LabelID{gc.LabelTrash},
			AddLabels:    []gc.LabelID{gc.LabelInbox},
		}, nil
	case undo.KindLabelAdd:
		if e.Label == "" {
			return gc.ModifyOps{}, fmt.Errorf("label undo entry without a label")
		}
		return gc.ModifyOps{RemoveLabels: []gc.LabelID{e.Label}}, nil
	default:
		return gc.ModifyOps{}, fmt.Errorf("unknown undo kind %q", e.Kind)
	}
}

// UndoLast reverses the session's most recent mutation.
func (e *Executor) UndoLast(ctx context.Context, sessionID string) (Result, error) {
	entry, err := e.Undo.Session(sessionID).TakeLatest()
	if err != nil {
		return e.undoMissing(err)
	}
	return e.reverse(ctx, entry)
}

// UndoByID reverses a specific recorded mutation.
func (e *Executor) UndoByID(ctx context.Context, sessionID, undoID string) (Result, error) {
	entry, err := e.Undo.Session(sessionID).Take(undoID)
	if err != nil {
		return e.undoMissing(err)
	}
	return e.reverse(ctx, entry)
}

// RecentActions lists what the session could still undo.
func (e *Executor) RecentActions(sessionID string, n int) Result {
	entries := e.Undo.Session(sessionID).Recent(n)
	if len(entries) == 0 {
		return infoResult("no recent actions to undo")
	}
	res := Result{Kind: KindInfo, Message: fmt.Sprintf("%d undoable actions", len(entries)), Count: len(entries)}
	for _, entry := range entries {
		res.Emails = append(res.Emails, EmailSummary{ID: entry.ID, Subject: entry.Description})
	}
	return res
}

func (e *Executor) undoMissing(err error) (Result, error) {
	if errors.Is(err, undo.ErrNothingToUndo) {
		return infoResult("nothing to undo"), nil
	}
	return errorResult(err.Error()), err
}

// reverseOne is the per-message fallback for an undo chunk. Trashed mail
// goes through the untrash endpoint, then gets INBOX back explicitly since
// untrash only restores the labels the trash call removed.
func (e *Executor) reverseOne(kind undo.Kind, ops gc.ModifyOps) func(ctx context.Context, id gc.MessageID) error {
	if kind != undo.KindTrash {
		return func(ctx context.Context, id gc.MessageID) error {
			return e.Client.Modify(ctx, id, ops)
		}
	}
	return func(ctx context.Context, id gc.MessageID) error {
		if err := e.Client.Untrash(ctx, id); err != nil {
			return err
		}
		return e.Client.Modify(ctx, id, gc.ModifyOps{AddLabels: []gc.LabelID{gc.LabelInbox}})
	}
}

func (e *Executor) reverse(ctx context.Context, entry undo.Entry) (Result, error) {
	ops, err := reverseOps(entry)
	if err != nil {
		return errorResult(err.Error()), err
	}

	var done []gc.MessageID
	failed := 0
	for start := 0; start < len(entry.Messages); start += mutateChunk {
		end := start + mutateChunk
		if end > len(entry.Messages) {
			end = len(entry.Messages)
		}
		chunk := entry.Messages[start:end]

		batchErr := retry.Do(ctx, e.Logger, retry.ListMutatePolicy(), "undo batch", func(ctx context.Context) error {
			if err := e.wait(ctx); err != nil {
				return err
			}
			return e.Client.BatchModify(ctx, chunk, ops)
		})
		if batchErr == nil {
			done = append(done, chunk...)
		} else {
			e.Logger.WarnContext(ctx, "undo chunk failed, reversing individually",
				"size", len(chunk), "error", batchErr)
			ok, bad := e.modifyEach(ctx, chunk, e.reverseOne(entry.Kind, ops))
			done = append(done, ok...)
			failed += bad
		}
		e.report("undoing", len(done)+failed, len(entry.Messages))
	}

	if len(done) == 0 {
		err := fmt.Errorf("undo failed for all %d messages", len(entry.Messages))
		return errorResult(err.Error()), err
	}
	msg := fmt.Sprintf("undid: %s (%d messages restored)", entry.Description, len(done))
	if failed > 0 {
		msg += fmt.Sprintf(", %d failed", failed)
	}
	e.Logger.InfoContext(ctx, "undo applied",
		"kind", string(entry.Kind), "succeeded", len(done), "failed", failed)
	return Result{Kind: KindSuccess, Message: msg, Count: len(done), Failed: failed}, nil
}
