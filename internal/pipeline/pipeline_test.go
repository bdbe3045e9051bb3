package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/mailpilot/internal/engine"
	gc "github.com/joshsymonds/mailpilot/internal/gmail"
)

type fakeClient struct {
	gc.Client

	order     []gc.MessageID
	labels    map[gc.MessageID]map[gc.LabelID]bool
	lastQuery string
	queries   []string
}

func newFake(ids ...string) *fakeClient {
	f := &fakeClient{labels: map[gc.MessageID]map[gc.LabelID]bool{}}
	for _, id := range ids {
		mid := gc.MessageID(id)
		f.order = append(f.order, mid)
		f.labels[mid] = map[gc.LabelID]bool{gc.LabelInbox: true}
	}
	return f
}

func (f *fakeClient) List(_ context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	f.lastQuery = q.Raw
	f.queries = append(f.queries, q.Raw)
	if pageToken != "" {
		return gc.ListPage{}, nil
	}
	end := pageSize
	if end > len(f.order) {
		end = len(f.order)
	}
	return gc.ListPage{IDs: f.order[:end]}, nil
}

func (f *fakeClient) GetMetadata(_ context.Context, id gc.MessageID, _ gc.MetaOpts) (gc.MessageMeta, error) {
	if _, ok := f.labels[id]; !ok {
		return gc.MessageMeta{}, errors.New("googleapi: Error 404: Not Found")
	}
	return gc.MessageMeta{
		ID:      id,
		Headers: map[string]string{"From": "x@y.com", "Subject": "s"},
	}, nil
}

func (f *fakeClient) BatchGetMetadata(ctx context.Context, ids []gc.MessageID, opts gc.MetaOpts) ([]gc.MessageMeta, error) {
	metas := make([]gc.MessageMeta, 0, len(ids))
	for _, id := range ids {
		m, err := f.GetMetadata(ctx, id, opts)
		if err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, nil
}

func (f *fakeClient) BatchModify(_ context.Context, ids []gc.MessageID, ops gc.ModifyOps) error {
	for _, id := range ids {
		for _, l := range ops.AddLabels {
			f.labels[id][l] = true
		}
		for _, l := range ops.RemoveLabels {
			delete(f.labels[id], l)
		}
	}
	return nil
}

func (f *fakeClient) ListLabels(context.Context) ([]gc.Label, error) {
	return []gc.Label{{ID: "INBOX", Name: "INBOX", Type: "system"}}, nil
}

func newRunner(f *fakeClient) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRunner(engine.New(f, nil, logger), logger)
	r.Clock = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRunDeleteFlow(t *testing.T) {
	fake := newFake("m1", "m2")
	r := newRunner(fake)
	ctx := context.Background()

	res, err := r.Run(ctx, "sess", "delete emails from spotify")
	require.NoError(t, err)
	require.Equal(t, engine.KindConfirm, res.Kind)
	require.NotNil(t, res.Details)
	assert.Equal(t, "delete", res.Details.Action)
	assert.Contains(t, res.Details.Query, "from:spotify")
	assert.Equal(t, 2, res.Details.Count)

	confirmed, err := r.Confirm(ctx, "sess", *res.Details)
	require.NoError(t, err)
	assert.Equal(t, engine.KindSuccess, confirmed.Kind)
	assert.Equal(t, 2, confirmed.Count)
	assert.True(t, fake.labels["m1"][gc.LabelTrash])
	require.NotEmpty(t, confirmed.UndoID)

	undone, err := r.Undo(ctx, "sess", "")
	require.NoError(t, err)
	assert.Equal(t, engine.KindSuccess, undone.Kind)
	assert.True(t, fake.labels["m1"][gc.LabelInbox])
	assert.False(t, fake.labels["m1"][gc.LabelTrash])
}

func TestRunListCompilesWindow(t *testing.T) {
	fake := newFake("m1")
	r := newRunner(fake)

	res, err := r.Run(context.Background(), "sess", "show emails from amazon from 2 weeks ago")
	require.NoError(t, err)
	assert.Equal(t, engine.KindSuccess, res.Kind)
	assert.Contains(t, fake.lastQuery, "from:amazon")
	// Week windows align to Monday.
	assert.Contains(t, fake.lastQuery, "after:2024/02/26")
	assert.Contains(t, fake.lastQuery, "before:2024/03/04")
}

func TestRunCustomCategoryKeepsCategoryTarget(t *testing.T) {
	fake := newFake("m1")
	r := newRunner(fake)

	res, err := r.Run(context.Background(), "sess", "archive all verification codes older than 30 days")
	require.NoError(t, err)
	require.Equal(t, engine.KindConfirm, res.Kind)
	assert.Equal(t, "custom_category", res.Details.TargetType)
	assert.Contains(t, res.Details.Query, "in:anywhere")
	assert.Contains(t, res.Details.Query, "verification code")
	assert.Contains(t, res.Details.Query, "before:")
}

func TestRunRestoreSearchesArchivedScope(t *testing.T) {
	fake := newFake("m1")
	r := newRunner(fake)

	res, err := r.Run(context.Background(), "sess", "restore emails from amazon")
	require.NoError(t, err)
	require.Equal(t, engine.KindConfirm, res.Kind)
	assert.Contains(t, res.Details.Query, "-in:inbox")
	assert.Contains(t, res.Details.Query, "from:amazon")
}

func TestRunUnparseableCommandIsUserError(t *testing.T) {
	r := newRunner(newFake())

	res, err := r.Run(context.Background(), "sess", "frobnicate the quux")
	require.NoError(t, err)
	assert.Equal(t, engine.KindError, res.Kind)
	assert.NotEmpty(t, res.Message)
}

func TestRunStats(t *testing.T) {
	fake := newFake("m1", "m2")
	r := newRunner(fake)

	res, err := r.Run(context.Background(), "sess", "show me my inbox stats")
	require.NoError(t, err)
	assert.Equal(t, engine.KindSuccess, res.Kind)
	assert.Equal(t, 2, res.Count)
}

func TestRunSendStagesConfirmation(t *testing.T) {
	r := newRunner(newFake())

	res, err := r.Run(context.Background(), "sess",
		`send email to alice@example.com with subject "Hi" and message "see you"`)
	require.NoError(t, err)
	require.Equal(t, engine.KindConfirm, res.Kind)
	assert.Equal(t, "send", res.Details.Action)
	assert.Equal(t, "alice@example.com", res.Details.SendTo)
}

func TestRunListLabels(t *testing.T) {
	r := newRunner(newFake())

	res, err := r.Run(context.Background(), "sess", "list labels")
	require.NoError(t, err)
	assert.Equal(t, engine.KindSuccess, res.Kind)
	assert.Equal(t, 1, res.Count)
}

func TestConfirmRejectsEmptyQuery(t *testing.T) {
	r := newRunner(newFake())

	res, err := r.Confirm(context.Background(), "sess", engine.ActionDetails{Action: "delete"})
	require.NoError(t, err)
	assert.Equal(t, engine.KindError, res.Kind)
}

func TestRunBulkAgeQuery(t *testing.T) {
	fake := newFake("m1")
	r := newRunner(fake)

	res, err := r.Run(context.Background(), "sess", "delete all emails older than 2 years")
	require.NoError(t, err)
	require.Equal(t, engine.KindConfirm, res.Kind)
	// 730 days before 2024-03-15.
	assert.Contains(t, res.Details.Query, fmt.Sprintf("before:%s", "2022/03/16"))
	assert.Equal(t, 730, res.Details.OlderThanDays)
	assert.False(t, strings.Contains(res.Details.Query, "from:"))
}
