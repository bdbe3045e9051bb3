package gmail

import "context"

// MetaOpts selects which metadata fields a Get should populate.
type MetaOpts struct {
	Headers      []string
	WantSnippet  bool
	WantInternal bool
}

// Client is the narrow Gmail surface required by mailpilot.
type Client interface {
	List(ctx context.Context, q Query, pageToken string, pageSize int) (ListPage, error)
	GetMetadata(ctx context.Context, id MessageID, opts MetaOpts) (MessageMeta, error)
	// BatchGetMetadata fetches metadata for many ids in one round trip.
	// Implementations may return fewer results than ids on partial failure.
	BatchGetMetadata(ctx context.Context, ids []MessageID, opts MetaOpts) ([]MessageMeta, error)
	BatchModify(ctx context.Context, ids []MessageID, ops ModifyOps) error
	Modify(ctx context.Context, id MessageID, ops ModifyOps) error
	Trash(ctx context.Context, id MessageID) error
	Untrash(ctx context.Context, id MessageID) error
	Send(ctx context.Context, msg Outgoing) (MessageID, error)
	ListLabels(ctx context.Context) ([]Label, error)
	EnsureLabel(ctx context.Context, name string) (LabelID, error)
}
