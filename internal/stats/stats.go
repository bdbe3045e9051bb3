// Package stats summarizes a mailbox: who sends the mail, what it is
// about, and when it arrives.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joshsymonds/mailpilot/internal/gmail"
	"github.com/joshsymonds/mailpilot/internal/rate"
	"github.com/joshsymonds/mailpilot/internal/retry"
)

const (
	// SampleSize bounds the quick report; FullAnalysisCap bounds the full
	// one. Both exist so "show stats" never walks an entire mailbox.
	SampleSize      = 200
	FullAnalysisCap = 1000

	defaultTopN = 10
)

func statsHeaders() []string {
	return []string{"From", "Subject"}
}

// Options controls how much mail a report covers.
type Options struct {
	Full  bool
	TopN  int
	Query gmail.Query
}

// Service collects mailbox statistics from Gmail metadata.
type Service struct {
	Client  gmail.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
}

func NewService(client gmail.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger, Clock: time.Now}
}

// Report is the aggregated view of the sampled mail.
type Report struct {
	GeneratedAt     time.Time      `json:"generated_at"`
	Sampled         int            `json:"sampled"`
	Full            bool           `json:"full"`
	TopSenders      []Count        `json:"top_senders"`
	TopDomains      []Count        `json:"top_domains"`
	TopSubjectTerms []Count        `json:"top_subject_terms"`
	LabelCounts     map[string]int `json:"label_counts"`
	HourHistogram   [24]int        `json:"hour_histogram"`
	Insights        []string       `json:"insights"`
}

// Count is one ranked entry.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Collect fetches metadata up to the sample cap and aggregates it.
func (s *Service) Collect(ctx context.Context, opts Options) (Report, error) {
	limit := SampleSize
	if opts.Full {
		limit = FullAnalysisCap
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	query := opts.Query
	if query.Raw == "" {
		query = gmail.Query{Raw: "-in:spam -in:trash -in:chats"}
	}

	s.Logger.InfoContext(ctx, "collecting mailbox stats",
		slog.Bool("full", opts.Full), slog.Int("cap", limit))

	metas, err := s.fetchMetadata(ctx, query, limit)
	if err != nil {
		return Report{}, err
	}

	rep := aggregate(metas, topN)
	rep.GeneratedAt = s.Clock()
	rep.Full = opts.Full
	return rep, nil
}

func (s *Service) fetchMetadata(ctx context.Context, query gmail.Query, max int) ([]gmail.MessageMeta, error) {
	opts := gmail.MetaOpts{Headers: statsHeaders(), WantInternal: true}
	var (
		metas []gmail.MessageMeta
		token string
	)
	for len(metas) < max {
		pageSize := max - len(metas)
		if pageSize > 500 {
			pageSize = 500
		}
		var page gmail.ListPage
		err := retry.Do(ctx, s.Logger, retry.ListMutatePolicy(), "list messages", func(ctx context.Context) error {
			if err := s.wait(ctx); err != nil {
				return err
			}
			var listErr error
			page, listErr = s.Client.List(ctx, query, token, pageSize)
			return listErr
		})
		if err != nil {
			return nil, err
		}
		if len(page.IDs) > 0 {
			chunk, err := s.messageMetadata(ctx, page.IDs, opts)
			if err != nil {
				return nil, err
			}
			metas = append(metas, chunk...)
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	if len(metas) > max {
		metas = metas[:max]
	}
	return metas, nil
}

// messageMetadata prefers the batched fetch and falls back to per-message
// gets so one bad ID does not sink the whole sample.
func (s *Service) messageMetadata(ctx context.Context, ids []gmail.MessageID, opts gmail.MetaOpts) ([]gmail.MessageMeta, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	batch, err := s.Client.BatchGetMetadata(ctx, ids, opts)
	if err == nil {
		return batch, nil
	}
	s.Logger.WarnContext(ctx, "batch metadata failed, fetching individually", "error", err)

	metas := make([]gmail.MessageMeta, 0, len(ids))
	for _, id := range ids {
		var meta gmail.MessageMeta
		getErr := retry.Do(ctx, s.Logger, retry.ReadPolicy(), "get metadata", func(ctx context.Context) error {
			if err := s.wait(ctx); err != nil {
				return err
			}
			var gerr error
			meta, gerr = s.Client.GetMetadata(ctx, id, opts)
			return gerr
		})
		if getErr != nil {
			s.Logger.WarnContext(ctx, "skipping message", "id", string(id), "error", getErr)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// subjectStopWords are too generic to say anything about a mailbox.
var subjectStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "your": true, "you": true,
	"with": true, "from": true, "this": true, "that": true, "are": true,
	"has": true, "have": true, "new": true, "now": true, "get": true,
	"our": true, "out": true, "all": true, "was": true, "will": true,
	"can": true, "not": true, "but": true, "its": true, "here": true,
	"just": true, "more": true, "about": true,
}

func aggregate(metas []gmail.MessageMeta, topN int) Report {
	senders := map[string]int{}
	domains := map[string]int{}
	terms := map[string]int{}
	labels := map[string]int{}
	var hours [24]int
	unread := 0

	for _, meta := range metas {
		from := meta.Headers["From"]
		if from != "" {
			senders[from]++
		}
		if d := domainOf(from); d != "" {
			domains[d]++
		}
		for _, term := range subjectTerms(meta.Headers["Subject"]) {
			terms[term]++
		}
		for _, lid := range meta.Labels {
			labels[string(lid)]++
			if lid == "UNREAD" {
				unread++
			}
		}
		if !meta.Internal.IsZero() {
			hours[meta.Internal.Hour()]++
		}
	}

	rep := Report{
		Sampled:         len(metas),
		TopSenders:      rank(senders, topN),
		TopDomains:      rank(domains, topN),
		TopSubjectTerms: rank(terms, topN),
		LabelCounts:     labels,
		HourHistogram:   hours,
	}
	rep.Insights = insights(rep, unread)
	return rep
}

// subjectTerms tokenizes a subject line, dropping reply prefixes, stop
// words, bare numbers, and anything shorter than three characters.
func subjectTerms(subject string) []string {
	subject = strings.ToLower(subject)
	for _, prefix := range []string{"re:", "fwd:", "fw:"} {
		subject = strings.TrimSpace(strings.TrimPrefix(subject, prefix))
	}
	fields := strings.FieldsFunc(subject, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || subjectStopWords[f] {
			continue
		}
		if strings.IndexFunc(f, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// domainOf pulls the domain out of a From header, handling both bare
// addresses and "Name <addr>" forms.
func domainOf(from string) string {
	addr := from
	if start := strings.LastIndex(from, "<"); start != -1 {
		end := strings.LastIndex(from, ">")
		if end > start {
			addr = from[start+1 : end]
		}
	}
	at := strings.LastIndex(addr, "@")
	if at == -1 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[at+1:]))
}

func rank(m map[string]int, topN int) []Count {
	slice := make([]Count, 0, len(m))
	for k, v := range m {
		slice = append(slice, Count{Key: k, Count: v})
	}
	sort.Slice(slice, func(i, j int) bool {
		if slice[i].Count == slice[j].Count {
			return slice[i].Key < slice[j].Key
		}
		return slice[i].Count > slice[j].Count
	})
	if topN < len(slice) {
		slice = slice[:topN]
	}
	return slice
}

func insights(rep Report, unread int) []string {
	if rep.Sampled == 0 {
		return []string{"no messages sampled"}
	}
	var out []string

	topShare := 0
	for i, sc := range rep.TopSenders {
		if i >= 3 {
			break
		}
		topShare += sc.Count
	}
	if topShare > 0 {
		out = append(out, fmt.Sprintf("top 3 senders account for %d%% of sampled mail",
			topShare*100/rep.Sampled))
	}

	busiest, max := 0, 0
	for h, n := range rep.HourHistogram {
		if n > max {
			busiest, max = h, n
		}
	}
	if max > 0 {
		out = append(out, fmt.Sprintf("busiest hour is %02d:00 (%d messages)", busiest, max))
	}

	if unread > 0 {
		out = append(out, fmt.Sprintf("%d%% of sampled mail is unread", unread*100/rep.Sampled))
	}
	return out
}
