// internal/runtime/googleapi.go — adapts *gmail.Service to our small interface
package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/mailpilot/internal/gmail"
)

const gmailUserID = "me"

type googleClient struct{ svc *gmail.Service }

func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List(gmailUserID).Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, err
	}
	page := gc.ListPage{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) GetMetadata(ctx context.Context, id gc.MessageID, opts gc.MetaOpts) (gc.MessageMeta, error) {
	call := g.svc.Users.Messages.Get(gmailUserID, string(id)).Format("metadata")
	if len(opts.Headers) > 0 {
		call = call.MetadataHeaders(opts.Headers...)
	}
	msg, err := call.Context(ctx).Do()
	if err != nil {
		return gc.MessageMeta{}, err
	}
	meta := gc.MessageMeta{ID: id, Labels: toLabelIDs(msg.LabelIds)}
	meta.Headers = map[string]string{}
	if msg.Payload != nil {
		for _, hd := range msg.Payload.Headers {
			meta.Headers[hd.Name] = hd.Value
		}
	}
	if opts.WantSnippet {
		meta.Snippet = msg.Snippet
	}
	if opts.WantInternal && msg.InternalDate > 0 {
		meta.Internal = time.UnixMilli(msg.InternalDate)
	}
	return meta, nil
}

// BatchGetMetadata fetches each id in turn. The generated Go client does not
// expose the REST batch endpoint, so the batching here is a single logical
// unit from the caller's perspective: the first error aborts and the caller
// falls back to per-message fetches with its own skip policy.
func (g *googleClient) BatchGetMetadata(ctx context.Context, ids []gc.MessageID, opts gc.MetaOpts) ([]gc.MessageMeta, error) {
	out := make([]gc.MessageMeta, 0, len(ids))
	for _, id := range ids {
		meta, err := g.GetMetadata(ctx, id, opts)
		if err != nil {
			return out, fmt.Errorf("batch get %s: %w", id, err)
		}
		out = append(out, meta)
	}
	return out, nil
}

func (g *googleClient) BatchModify(ctx context.Context, ids []gc.MessageID, ops gc.ModifyOps) error {
	req := &gmail.BatchModifyMessagesRequest{Ids: toStrings(ids)}
	if len(ops.AddLabels) > 0 {
		req.AddLabelIds = toStringsL(ops.AddLabels)
	}
	if len(ops.RemoveLabels) > 0 {
		req.RemoveLabelIds = toStringsL(ops.RemoveLabels)
	}
	return g.svc.Users.Messages.BatchModify(gmailUserID, req).Context(ctx).Do()
}

func (g *googleClient) Modify(ctx context.Context, id gc.MessageID, ops gc.ModifyOps) error {
	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    toStringsL(ops.AddLabels),
		RemoveLabelIds: toStringsL(ops.RemoveLabels),
	}
	_, err := g.svc.Users.Messages.Modify(gmailUserID, string(id), req).Context(ctx).Do()
	return err
}

func (g *googleClient) Trash(ctx context.Context, id gc.MessageID) error {
	_, err := g.svc.Users.Messages.Trash(gmailUserID, string(id)).Context(ctx).Do()
	return err
}

func (g *googleClient) Untrash(ctx context.Context, id gc.MessageID) error {
	_, err := g.svc.Users.Messages.Untrash(gmailUserID, string(id)).Context(ctx).Do()
	return err
}

func (g *googleClient) Send(ctx context.Context, msg gc.Outgoing) (gc.MessageID, error) {
	raw := "To: " + msg.To + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n" +
		msg.Body
	sent, err := g.svc.Users.Messages.Send(gmailUserID, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return gc.MessageID(sent.Id), nil
}

func (g *googleClient) ListLabels(ctx context.Context) ([]gc.Label, error) {
	lr, err := g.svc.Users.Labels.List(gmailUserID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]gc.Label, 0, len(lr.Labels))
	for _, l := range lr.Labels {
		out = append(out, gc.Label{ID: gc.LabelID(l.Id), Name: l.Name, Type: l.Type})
	}
	return out, nil
}

func (g *googleClient) EnsureLabel(ctx context.Context, name string) (gc.LabelID, error) {
	labels, err := g.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range labels {
		if l.Name == name {
			return l.ID, nil
		}
	}
	created, err := g.svc.Users.Labels.Create(gmailUserID, &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return gc.LabelID(created.Id), nil
}

func toStrings(ids []gc.MessageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toStringsL(ids []gc.LabelID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toLabelIDs(ids []string) []gc.LabelID {
	out := make([]gc.LabelID, len(ids))
	for i, id := range ids {
		out[i] = gc.LabelID(id)
	}
	return out
}
