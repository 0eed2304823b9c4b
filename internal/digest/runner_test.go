package digest

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperwire/arxiv-digest/internal/domain"
	"github.com/paperwire/arxiv-digest/internal/enrich"
	"github.com/paperwire/arxiv-digest/internal/feishu"
	"github.com/paperwire/arxiv-digest/internal/llm"
)

type fakeFeed struct {
	records []domain.SourceRecord
	err     error
}

func (f *fakeFeed) FetchRecent(context.Context, []string, int) ([]domain.SourceRecord, error) {
	return f.records, f.err
}

type fakeHistory struct {
	seen   map[string]bool
	marked []string
}

func (f *fakeHistory) Seen(_ context.Context, id string) (bool, error) {
	return f.seen[id], nil
}

func (f *fakeHistory) MarkSent(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

type fakeSender struct {
	sent  [][]feishu.Paper
	err   error
	calls int
}

func (f *fakeSender) Send(_ context.Context, papers []feishu.Paper) error {
	f.calls++
	f.sent = append(f.sent, papers)
	return f.err
}

// translator is a minimal LLM fake for the runner tests.
type translator struct {
	reply string
	err   error
}

func (t *translator) Generate(context.Context, []llm.Message) (string, error) {
	return t.reply, t.err
}
func (t *translator) Lang() string     { return "Chinese" }
func (t *translator) Provider() string { return "fake" }
func (t *translator) Model() string    { return "fake-model" }

type missingArchive struct{}

func (missingArchive) FetchSourceToTemp(_ context.Context, id string) (string, func(), error) {
	return "", nil, domain.NewNotFoundError("source archive", id)
}

type missingPage struct{}

func (missingPage) FetchPage(_ context.Context, id string) (*enrich.Page, error) {
	return nil, domain.NewNotFoundError("rendered page", id)
}

func record(id, title string) domain.SourceRecord {
	return domain.SourceRecord{
		ArxivID:  id,
		Title:    title,
		Abstract: "An abstract.",
		AbsURL:   "https://arxiv.org/abs/" + id,
	}
}

func newTestRunner(feed *fakeFeed, history *fakeHistory, sender *fakeSender, client llm.Client) *Runner {
	cfg := Config{
		Categories: []string{"cs.CL"},
		MaxResults: 50,
		MaxPapers:  10,
		SendEmpty:  true,
	}
	deps := enrich.Deps{
		LLM:     client,
		Archive: missingArchive{},
		Pages:   missingPage{},
		Repos:   NoRepoResolver{},
		Logger:  zerolog.Nop(),
	}
	return NewRunner(cfg, feed, history, sender, deps, zerolog.Nop())
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers fresh papers and records them", func(t *testing.T) {
		feed := &fakeFeed{records: []domain.SourceRecord{
			record("2401.00001", "First"),
			record("2401.00002", "Second"),
		}}
		history := &fakeHistory{seen: map[string]bool{}}
		sender := &fakeSender{}

		err := newTestRunner(feed, history, sender, &translator{reply: "摘要"}).Run(ctx)
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		papers := sender.sent[0]
		require.Len(t, papers, 2)
		assert.Equal(t, "First", papers[0].Title)
		assert.Equal(t, "摘要", papers[0].TLDR)
		assert.Equal(t, []string{"2401.00001", "2401.00002"}, history.marked)
	})

	t.Run("already-sent papers are filtered out", func(t *testing.T) {
		feed := &fakeFeed{records: []domain.SourceRecord{
			record("2401.00001", "Old"),
			record("2401.00002", "New"),
		}}
		history := &fakeHistory{seen: map[string]bool{"2401.00001": true}}
		sender := &fakeSender{}

		err := newTestRunner(feed, history, sender, &translator{reply: "t"}).Run(ctx)
		require.NoError(t, err)

		require.Len(t, sender.sent[0], 1)
		assert.Equal(t, "New", sender.sent[0][0].Title)
	})

	t.Run("paper cap applies after filtering", func(t *testing.T) {
		feed := &fakeFeed{records: []domain.SourceRecord{
			record("1", "A"), record("2", "B"), record("3", "C"),
		}}
		history := &fakeHistory{seen: map[string]bool{}}
		sender := &fakeSender{}

		runner := newTestRunner(feed, history, sender, &translator{reply: "t"})
		runner.config.MaxPapers = 2

		require.NoError(t, runner.Run(ctx))
		assert.Len(t, sender.sent[0], 2)
	})

	t.Run("empty run still sends the rest-day card", func(t *testing.T) {
		sender := &fakeSender{}
		err := newTestRunner(&fakeFeed{}, &fakeHistory{seen: map[string]bool{}}, sender, &translator{reply: "t"}).Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, sender.calls)
		assert.Empty(t, sender.sent[0])
	})

	t.Run("empty run skips delivery when disabled", func(t *testing.T) {
		sender := &fakeSender{}
		runner := newTestRunner(&fakeFeed{}, &fakeHistory{seen: map[string]bool{}}, sender, &translator{reply: "t"})
		runner.config.SendEmpty = false

		require.NoError(t, runner.Run(ctx))
		assert.Zero(t, sender.calls)
	})

	t.Run("translation failure skips the paper", func(t *testing.T) {
		feed := &fakeFeed{records: []domain.SourceRecord{record("1", "A")}}
		sender := &fakeSender{}

		err := newTestRunner(feed, &fakeHistory{seen: map[string]bool{}}, sender, &translator{err: errors.New("model offline")}).Run(ctx)
		require.Error(t, err)
		assert.Zero(t, sender.calls)
	})

	t.Run("feed failure fails the run", func(t *testing.T) {
		feed := &fakeFeed{err: errors.New("feed down")}
		err := newTestRunner(feed, &fakeHistory{}, &fakeSender{}, &translator{reply: "t"}).Run(ctx)
		assert.Error(t, err)
	})

	t.Run("delivery failure leaves papers unmarked", func(t *testing.T) {
		feed := &fakeFeed{records: []domain.SourceRecord{record("1", "A")}}
		history := &fakeHistory{seen: map[string]bool{}}
		sender := &fakeSender{err: errors.New("webhook down")}

		err := newTestRunner(feed, history, sender, &translator{reply: "t"}).Run(ctx)
		require.Error(t, err)
		assert.Empty(t, history.marked)
	})
}

func TestNoRepoResolver(t *testing.T) {
	_, err := NoRepoResolver{}.RepositoryURL(context.Background(), "2401.00001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
