package engine

import (
	"context"
	"fmt"

	gc "github.com/joshsymonds/mailpilot/internal/gmail"
	"github.com/joshsymonds/mailpilot/internal/retry"
	"github.com/joshsymonds/mailpilot/internal/undo"
)

// mutation binds an action name to its label operations and undo kind.
// single, when set, replaces the generic per-message Modify in the batch
// fallback path.
type mutation struct {
	ops      gc.ModifyOps
	single   func(ctx context.Context, id gc.MessageID) error
	undoKind undo.Kind
	verb     string
}

// mutationFor resolves a confirmed action into concrete label edits.
// Deleting means trashing; Gmail purges trash on its own schedule, so every
// delete stays reversible for 30 days.
func (e *Executor) mutationFor(ctx context.Context, d ActionDetails) (mutation, error) {
	switch d.Action {
	case "delete":
		return mutation{
			ops:      gc.ModifyOps{AddLabels: []gc.LabelID{gc.LabelTrash}, RemoveLabels: []gc.LabelID{gc.LabelInbox}},
			single:   e.Client.Trash,
			undoKind: undo.KindTrash,
			verb:     "deleted",
		}, nil
	case "archive":
		return mutation{
			ops:      gc.ModifyOps{RemoveLabels: []gc.LabelID{gc.LabelInbox}},
			undoKind: undo.KindArchive,
			verb:     "archived",
		}, nil
	case "restore":
		return mutation{
			ops:      gc.ModifyOps{AddLabels: []gc.LabelID{gc.LabelInbox}},
			undoKind: undo.KindLabelAdd,
			verb:     "restored",
		}, nil
	case "label":
		if d.Label == "" {
			return mutation{}, fmt.Errorf("label action without a label name")
		}
		lid, err := e.ensureLabel(ctx, d.Label)
		if err != nil {
			return mutation{}, err
		}
		return mutation{
			ops:      gc.ModifyOps{AddLabels: []gc.LabelID{lid}},
			undoKind: undo.KindLabelAdd,
			verb:     fmt.Sprintf("labeled as %q", d.Label),
		}, nil
	default:
		return mutation{}, fmt.Errorf("unknown action %q", d.Action)
	}
}

// PreviewMutation counts matches and stages the action for confirmation.
// Nothing is modified.
func (e *Executor) PreviewMutation(ctx context.Context, d ActionDetails) (Result, error) {
	count, firstPage, err := e.countMatches(ctx, gc.Query{Raw: d.Query})
	if err != nil {
		return errorResult(err.Error()), err
	}
	if count == 0 {
		return Result{Kind: KindSuccess, Message: "no messages match; nothing to do"}, nil
	}

	previewIDs := firstPage
	if len(previewIDs) > previewLimit {
		previewIDs = previewIDs[:previewLimit]
	}
	preview, err := e.summaries(ctx, previewIDs)
	if err != nil {
		return errorResult(err.Error()), err
	}

	d.Count = count
	return Result{
		Kind:    KindConfirm,
		Message: fmt.Sprintf("%s %d messages? confirm to proceed", d.Action, count),
		Count:   count,
		Preview: preview,
		Details: &d,
	}, nil
}

// ApplyMutation executes a confirmed action. Messages are modified in
// chunks; when a chunk fails the engine retries its messages one at a time,
// so one poisoned ID costs one message, not a hundred. Only the IDs that
// were actually changed go into the undo ledger.
func (e *Executor) ApplyMutation(ctx context.Context, sessionID string, d ActionDetails) (Result, error) {
	mut, err := e.mutationFor(ctx, d)
	if err != nil {
		return errorResult(err.Error()), err
	}

	ids, err := e.collectIDs(ctx, gc.Query{Raw: d.Query})
	if err != nil {
		return errorResult(err.Error()), err
	}
	if len(ids) == 0 {
		return Result{Kind: KindSuccess, Message: "no messages match; nothing to do"}, nil
	}

	var done []gc.MessageID
	failed := 0
	for start := 0; start < len(ids); start += mutateChunk {
		end := start + mutateChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		batchErr := retry.Do(ctx, e.Logger, retry.ListMutatePolicy(), "batch modify", func(ctx context.Context) error {
			if err := e.wait(ctx); err != nil {
				return err
			}
			return e.Client.BatchModify(ctx, chunk, mut.ops)
		})
		if batchErr == nil {
			done = append(done, chunk...)
		} else {
			e.Logger.WarnContext(ctx, "chunk failed, retrying messages individually",
				"size", len(chunk), "error", batchErr)
			ok, bad := e.modifyEach(ctx, chunk, singleOp(e.Client, mut))
			done = append(done, ok...)
			failed += bad
		}
		e.report("mutating", len(done)+failed, len(ids))
	}

	res := Result{Kind: KindSuccess, Count: len(done), Failed: failed}
	if len(done) == 0 {
		res.Kind = KindError
		res.Message = fmt.Sprintf("no messages could be %s (%d failed)", mut.verb, failed)
		return res, nil
	}

	var label gc.LabelID
	if len(mut.ops.AddLabels) > 0 {
		label = mut.ops.AddLabels[0]
	}
	description := fmt.Sprintf("%s %d messages matching %q", mut.verb, len(done), d.Target)
	res.UndoID = e.Undo.Session(sessionID).Record(mut.undoKind, done, label, description)

	res.Message = fmt.Sprintf("%s %d messages", mut.verb, len(done))
	if failed > 0 {
		res.Message += fmt.Sprintf(" (%d failed)", failed)
	}
	e.Logger.InfoContext(ctx, "mutation applied",
		"action", d.Action, "succeeded", len(done), "failed", failed)
	return res, nil
}

// singleOp picks the per-message form of a mutation: the dedicated endpoint
// when one exists, otherwise a plain modify with the same ops.
func singleOp(client gc.Client, mut mutation) func(ctx context.Context, id gc.MessageID) error {
	if mut.single != nil {
		return mut.single
	}
	return func(ctx context.Context, id gc.MessageID) error {
		return client.Modify(ctx, id, mut.ops)
	}
}

// modifyEach applies one operation per message, returning the IDs that
// succeeded and the count that did not.
func (e *Executor) modifyEach(ctx context.Context, ids []gc.MessageID, op func(ctx context.Context, id gc.MessageID) error) ([]gc.MessageID, int) {
	var ok []gc.MessageID
	failed := 0
	for _, id := range ids {
		err := retry.Do(ctx, e.Logger, retry.ReadPolicy(), "modify message", func(ctx context.Context) error {
			if err := e.wait(ctx); err != nil {
				return err
			}
			return op(ctx, id)
		})
		if err != nil {
			e.Logger.WarnContext(ctx, "message skipped", "id", string(id), "error", err)
			failed++
			continue
		}
		ok = append(ok, id)
	}
	return ok, failed
}

func (e *Executor) ensureLabel(ctx context.Context, name string) (gc.LabelID, error) {
	var lid gc.LabelID
	err := retry.Do(ctx, e.Logger, retry.ListMutatePolicy(), "ensure label", func(ctx context.Context) error {
		if err := e.wait(ctx); err != nil {
			return err
		}
		var ensureErr error
		lid, ensureErr = e.Client.EnsureLabel(ctx, name)
		return ensureErr
	})
	return lid, err
}
