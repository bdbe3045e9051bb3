// Package pipeline wires command text to execution: parse, resolve dates,
// compile the Gmail query, then hand off to the engine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joshsymonds/mailpilot/internal/datewindow"
	"github.com/joshsymonds/mailpilot/internal/engine"
	gc "github.com/joshsymonds/mailpilot/internal/gmail"
	"github.com/joshsymonds/mailpilot/internal/intent"
	"github.com/joshsymonds/mailpilot/internal/query"
)

// Runner turns one command string into one engine call.
type Runner struct {
	Parser *intent.Parser
	Engine *engine.Executor
	Logger *slog.Logger
	Clock  func() time.Time
}

func NewRunner(exec *engine.Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Runner{
		Parser: intent.NewParser(),
		Engine: exec,
		Logger: logger,
		Clock:  time.Now,
	}
}

// Run executes a command for a session. Commands the parser cannot place
// come back as error results, not Go errors; the returned error is reserved
// for API and transport failures.
func (r *Runner) Run(ctx context.Context, sessionID, command string) (engine.Result, error) {
	return r.RunPage(ctx, sessionID, command, "")
}

// RunPage is Run with listing continuation: pass the NextPageToken from a
// previous result to fetch the following page.
func (r *Runner) RunPage(ctx context.Context, sessionID, command, pageToken string) (engine.Result, error) {
	in, err := r.Parser.Parse(command)
	if err != nil {
		var perr *intent.ParseError
		if errors.As(err, &perr) {
			r.Logger.InfoContext(ctx, "command not understood",
				"command", command, "best_guess", perr.BestGuess.String(), "score", perr.Score)
			return engine.Result{Kind: engine.KindError, Message: perr.Diagnostic}, nil
		}
		return engine.Result{Kind: engine.KindError, Message: err.Error()}, err
	}

	r.Logger.InfoContext(ctx, "command parsed",
		"session", sessionID,
		"action", in.Action.String(),
		"target_type", in.TargetType.String(),
		"target", in.Target,
		"confidence", in.Confidence)

	switch in.Action {
	case intent.ActionList, intent.ActionSearch:
		q, err := r.compile(in)
		if err != nil {
			return engine.Result{Kind: engine.KindError, Message: err.Error()}, nil
		}
		return r.Engine.List(ctx, q, pageToken)

	case intent.ActionDelete, intent.ActionArchive, intent.ActionRestore, intent.ActionLabel:
		q, err := r.compile(in)
		if err != nil {
			return engine.Result{Kind: engine.KindError, Message: err.Error()}, nil
		}
		res, err := r.Engine.PreviewMutation(ctx, detailsFor(in, q))
		if err == nil && res.Kind == engine.KindConfirm && in.TargetType == intent.TargetCustomCategory {
			res.Message = fmt.Sprintf("%s %d %s? confirm to proceed",
				in.Action.String(), res.Count, query.PrettyCategoryName(in.Target))
		}
		return res, err

	case intent.ActionStats:
		res, rep, err := r.Engine.MailboxStats(ctx, in.Target == "full")
		if err != nil {
			return res, err
		}
		return withInsights(res, rep.Insights), nil

	case intent.ActionSend:
		return r.Engine.PreviewSend(in.SendTo, in.SendSubject, in.SendBody), nil

	case intent.ActionInfoOnly:
		return r.Engine.TrashInfo(ctx)

	case intent.ActionListLabels:
		return r.Engine.Labels(ctx)

	case intent.ActionShowLabel:
		return r.Engine.ShowLabel(ctx, in.Target)
	}

	return engine.Result{Kind: engine.KindError,
		Message: fmt.Sprintf("cannot execute action %q", in.Action.String())}, nil
}

// Confirm replays a staged action. The details must be exactly what a
// previous Run returned.
func (r *Runner) Confirm(ctx context.Context, sessionID string, d engine.ActionDetails) (engine.Result, error) {
	if d.Action == "send" {
		return r.Engine.Send(ctx, d)
	}
	if d.Query == "" {
		return engine.Result{Kind: engine.KindError, Message: "confirmation is missing its query"}, nil
	}
	return r.Engine.ApplyMutation(ctx, sessionID, d)
}

// Undo reverses the session's latest mutation, or a specific one by ID.
func (r *Runner) Undo(ctx context.Context, sessionID, undoID string) (engine.Result, error) {
	if undoID == "" {
		return r.Engine.UndoLast(ctx, sessionID)
	}
	return r.Engine.UndoByID(ctx, sessionID, undoID)
}

// RecentActions lists what the session can still undo.
func (r *Runner) RecentActions(sessionID string, n int) engine.Result {
	return r.Engine.RecentActions(sessionID, n)
}

// compile maps an intent's target onto query filters and renders the Gmail
// query string.
func (r *Runner) compile(in intent.Intent) (gc.Query, error) {
	now := r.Clock()
	f := query.Filters{}

	switch in.TargetType {
	case intent.TargetSender:
		f.Sender = in.Target
	case intent.TargetDomain:
		f.Domain = in.Target
	case intent.TargetCategory:
		f.Category = in.Target
	case intent.TargetCustomCategory:
		if !query.KnownCustomCategory(in.Target) {
			return gc.Query{}, fmt.Errorf("unknown category %q", in.Target)
		}
		f.CustomCategory = in.Target
	case intent.TargetSubjectKeywords:
		f.SubjectKeywords = in.Keywords
	case intent.TargetArchived:
		f.Scope = query.ScopeArchived
	case intent.TargetAllMail:
		f.Scope = query.ScopeAllMail
	case intent.TargetBulkAge:
		if in.OlderThanDays <= 0 {
			return gc.Query{}, fmt.Errorf("bulk cleanup needs an age, e.g. %q", "older than 1 year")
		}
	case intent.TargetDateRange:
		w, err := datewindow.Resolve(in.Target, now)
		if err != nil {
			return gc.Query{}, fmt.Errorf("date phrase %q: %w", in.Target, err)
		}
		f.Window = w
	case intent.TargetOlderThan:
		w, err := datewindow.Resolve("older than "+in.Target, now)
		if err != nil {
			return gc.Query{}, fmt.Errorf("age phrase %q: %w", in.Target, err)
		}
		f.Window = w
	case intent.TargetRecent:
		// Default scope, no extra filters.
	default:
		return gc.Query{}, fmt.Errorf("no query for target type %q", in.TargetType.String())
	}

	// Restoring searches outside the inbox by definition.
	if in.Action == intent.ActionRestore {
		f.Scope = query.ScopeArchived
	}

	if in.OlderThanDays > 0 {
		f.OlderThanDays = in.OlderThanDays
	}
	if in.DateRange != "" && f.Window.Start.IsZero() && f.Window.End.IsZero() {
		w, err := datewindow.Resolve(in.DateRange, now)
		if err != nil {
			return gc.Query{}, fmt.Errorf("date phrase %q: %w", in.DateRange, err)
		}
		f.Window = w
	}

	return query.Compile(f, now)
}

func detailsFor(in intent.Intent, q gc.Query) engine.ActionDetails {
	return engine.ActionDetails{
		Action:        in.Action.String(),
		TargetType:    in.TargetType.String(),
		Target:        in.Target,
		Label:         in.Label,
		Query:         q.Raw,
		OlderThanDays: in.OlderThanDays,
		DateRange:     in.DateRange,
	}
}

func withInsights(res engine.Result, insights []string) engine.Result {
	if len(insights) > 0 {
		res.Message += "; " + strings.Join(insights, "; ")
	}
	return res
}
