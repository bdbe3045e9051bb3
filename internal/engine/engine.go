// Package engine executes parsed mailbox actions against Gmail: listing,
// previewing, mutating in batches, and undoing.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	gc "github.com/joshsymonds/mailpilot/internal/gmail"
	"github.com/joshsymonds/mailpilot/internal/rate"
	"github.com/joshsymonds/mailpilot/internal/retry"
	"github.com/joshsymonds/mailpilot/internal/stats"
	"github.com/joshsymonds/mailpilot/internal/undo"
)

const (
	defaultPageSize = 100
	// previewLimit caps how many messages a confirmation prompt shows.
	previewLimit = 10
	// mutateChunk keeps batch modifications small enough that a single
	// failure wastes little work.
	mutateChunk = 100
	// fetchCap bounds how many messages one command may touch.
	fetchCap = 5000
	// batchMetaThreshold: below this many IDs, per-message gets are cheaper
	// than a batch round trip.
	batchMetaThreshold = 10
)

func previewHeaders() []string {
	return []string{"From", "Subject", "Date"}
}

// Reporter receives progress during long operations. Calls are advisory;
// implementations must not block.
type Reporter interface {
	Progress(stage string, done, total int)
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) Progress(string, int, int) {}

// Executor runs mailbox operations. All fields except Client are optional.
type Executor struct {
	Client   gc.Client
	Limiter  rate.Limiter
	Logger   *slog.Logger
	Clock    func() time.Time
	Undo     *undo.Registry
	Stats    *stats.Service
	Reporter Reporter
	PageSize int
}

func New(client gc.Client, limiter rate.Limiter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	clock := time.Now
	return &Executor{
		Client:   client,
		Limiter:  limiter,
		Logger:   logger,
		Clock:    clock,
		Undo:     undo.NewRegistry(clock),
		Stats:    stats.NewService(client, limiter, logger),
		Reporter: NopReporter{},
		PageSize: defaultPageSize,
	}
}

func (e *Executor) pageSize() int {
	if e.PageSize <= 0 {
		return defaultPageSize
	}
	return e.PageSize
}

func (e *Executor) report(stage string, done, total int) {
	if e.Reporter != nil {
		e.Reporter.Progress(stage, done, total)
	}
}

// List returns one page of summaries for the query.
func (e *Executor) List(ctx context.Context, q gc.Query, pageToken string) (Result, error) {
	page, err := e.listPage(ctx, q, pageToken, e.pageSize())
	if err != nil {
		return errorResult(err.Error()), err
	}
	if len(page.IDs) == 0 {
		return Result{Kind: KindSuccess, Message: "no messages found"}, nil
	}
	summaries, err := e.summaries(ctx, page.IDs)
	if err != nil {
		return errorResult(err.Error()), err
	}
	return Result{
		Kind:          KindSuccess,
		Message:       fmt.Sprintf("found %d messages", len(summaries)),
		Count:         len(summaries),
		Emails:        summaries,
		NextPageToken: page.NextPageToken,
	}, nil
}

// Labels lists the account's labels.
func (e *Executor) Labels(ctx context.Context) (Result, error) {
	if err := e.wait(ctx); err != nil {
		return errorResult(err.Error()), err
	}
	labels, err := e.Client.ListLabels(ctx)
	if err != nil {
		err = fmt.Errorf("list labels: %w", err)
		return errorResult(err.Error()), err
	}
	res := Result{Kind: KindSuccess, Message: fmt.Sprintf("%d labels", len(labels)), Count: len(labels)}
	for _, l := range labels {
		res.Emails = append(res.Emails, EmailSummary{ID: string(l.ID), Subject: l.Name})
	}
	return res, nil
}

// ShowLabel lists messages carrying the named label.
func (e *Executor) ShowLabel(ctx context.Context, name string) (Result, error) {
	q := gc.Query{Raw: fmt.Sprintf(`label:"%s"`, name)}
	res, err := e.List(ctx, q, "")
	if err != nil {
		return res, err
	}
	if res.Count == 0 {
		res.Message = fmt.Sprintf("no messages under label %q", name)
	}
	return res, nil
}

// MailboxStats builds a statistics report.
func (e *Executor) MailboxStats(ctx context.Context, full bool) (Result, *stats.Report, error) {
	rep, err := e.Stats.Collect(ctx, stats.Options{Full: full})
	if err != nil {
		return errorResult(err.Error()), nil, err
	}
	scope := "sampled"
	if full {
		scope = "full"
	}
	return Result{
		Kind:    KindSuccess,
		Message: fmt.Sprintf("analyzed %d messages (%s)", rep.Sampled, scope),
		Count:   rep.Sampled,
	}, &rep, nil
}

// TrashInfo reports how much sits in the trash without touching it. Gmail
// purges trash on its own after 30 days; there is no API to force it.
func (e *Executor) TrashInfo(ctx context.Context) (Result, error) {
	count, _, err := e.countMatches(ctx, gc.Query{Raw: "in:trash"})
	if err != nil {
		return errorResult(err.Error()), err
	}
	return infoResult(fmt.Sprintf(
		"%d messages in trash; Gmail deletes them permanently after 30 days", count)), nil
}

// PreviewSend stages an outgoing message for confirmation.
func (e *Executor) PreviewSend(to, subject, body string) Result {
	d := &ActionDetails{
		Action:      "send",
		TargetType:  "recipient",
		Target:      to,
		SendTo:      to,
		SendSubject: subject,
		SendBody:    body,
		Count:       1,
	}
	return Result{
		Kind:    KindConfirm,
		Message: fmt.Sprintf("send email to %s with subject %q?", to, subject),
		Details: d,
	}
}

// Send delivers a previously confirmed message.
func (e *Executor) Send(ctx context.Context, d ActionDetails) (Result, error) {
	if d.SendTo == "" {
		err := fmt.Errorf("send: missing recipient")
		return errorResult(err.Error()), err
	}
	var id gc.MessageID
	err := retry.Do(ctx, e.Logger, retry.ListMutatePolicy(), "send", func(ctx context.Context) error {
		if err := e.wait(ctx); err != nil {
			return err
		}
		var sendErr error
		id, sendErr = e.Client.Send(ctx, gc.Outgoing{To: d.SendTo, Subject: d.SendSubject, Body: d.SendBody})
		return sendErr
	})
	if err != nil {
		return errorResult(err.Error()), err
	}
	e.Logger.InfoContext(ctx, "sent message", "to", d.SendTo, "id", string(id))
	return Result{Kind: KindSuccess, Message: fmt.Sprintf("email sent to %s", d.SendTo), Count: 1}, nil
}

// listPage wraps Client.List with rate limiting and retries.
func (e *Executor) listPage(ctx context.Context, q gc.Query, token string, size int) (gc.ListPage, error) {
	var page gc.ListPage
	err := retry.Do(ctx, e.Logger, retry.ListMutatePolicy(), "list messages", func(ctx context.Context) error {
		if err := e.wait(ctx); err != nil {
			return err
		}
		var listErr error
		page, listErr = e.Client.List(ctx, q, token, size)
		return listErr
	})
	return page, err
}

// collectIDs walks every page of the query up to the fetch cap.
func (e *Executor) collectIDs(ctx context.Context, q gc.Query) ([]gc.MessageID, error) {
	var (
		ids   []gc.MessageID
		token string
	)
	for {
		page, err := e.listPage(ctx, q, token, e.pageSize())
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.IDs...)
		e.report("collecting", len(ids), 0)
		if len(ids) >= fetchCap {
			ids = ids[:fetchCap]
			e.Logger.Warn("fetch cap reached, truncating", "cap", fetchCap, "query", q.Raw)
			break
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	return ids, nil
}

// countMatches returns the total match count and the first page of IDs.
func (e *Executor) countMatches(ctx context.Context, q gc.Query) (int, []gc.MessageID, error) {
	ids, err := e.collectIDs(ctx, q)
	if err != nil {
		return 0, nil, err
	}
	first := ids
	if len(first) > e.pageSize() {
		first = first[:e.pageSize()]
	}
	return len(ids), first, nil
}

// summaries resolves IDs to display rows. Larger sets go through the batch
// endpoint with a per-message fallback; unreadable messages are skipped.
func (e *Executor) summaries(ctx context.Context, ids []gc.MessageID) ([]EmailSummary, error) {
	opts := gc.MetaOpts{Headers: previewHeaders(), WantSnippet: true}

	if len(ids) > batchMetaThreshold {
		if err := e.wait(ctx); err != nil {
			return nil, err
		}
		metas, err := e.Client.BatchGetMetadata(ctx, ids, opts)
		if err == nil {
			return toSummaries(metas), nil
		}
		e.Logger.WarnContext(ctx, "batch metadata failed, fetching individually", "error", err)
	}

	out := make([]EmailSummary, 0, len(ids))
	for i, id := range ids {
		var meta gc.MessageMeta
		err := retry.Do(ctx, e.Logger, retry.ReadPolicy(), "get metadata", func(ctx context.Context) error {
			if err := e.wait(ctx); err != nil {
				return err
			}
			var getErr error
			meta, getErr = e.Client.GetMetadata(ctx, id, opts)
			return getErr
		})
		if err != nil {
			e.Logger.WarnContext(ctx, "skipping unreadable message", "id", string(id), "error", err)
			continue
		}
		out = append(out, toSummary(meta))
		e.report("metadata", i+1, len(ids))
	}
	return out, nil
}

func toSummaries(metas []gc.MessageMeta) []EmailSummary {
	out := make([]EmailSummary, 0, len(metas))
	for _, m := range metas {
		out = append(out, toSummary(m))
	}
	return out
}

func toSummary(m gc.MessageMeta) EmailSummary {
	return EmailSummary{
		ID:      string(m.ID),
		From:    m.Headers["From"],
		Subject: m.Headers["Subject"],
		Date:    m.Headers["Date"],
		Snippet: m.Snippet,
	}
}

func (e *Executor) wait(ctx context.Context) error {
	if e.Limiter == nil {
		return nil
	}
	if err := e.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}
