// Package activity turns note and commit timestamps into a per-day activity map
// for one user and one civil year.
package activity

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2tpaud/commit-push/internal/domain"
	"github.com/2tpaud/commit-push/internal/observability"
)

// DefaultFetchLimit caps each per-entity query. Sources return the newest rows,
// so the oldest rows past the cap are silently dropped.
const DefaultFetchLimit = 10000

// StampSource reads the timestamp projections of a user's notes and commits.
// Implementations scope rows to userID and, when capping, keep the most
// recently created rows.
type StampSource interface {
	ListNoteStamps(ctx context.Context, userID string, limit int) ([]domain.NoteStamp, error)
	ListCommitStamps(ctx context.Context, userID string, limit int) ([]domain.CommitStamp, error)
}

// DayCount is the activity recorded on one civil day.
type DayCount struct {
	Notes   int `json:"notes"`
	Commits int `json:"commits"`
}

// YearActivity is the aggregation result for one (user, year) pair.
type YearActivity struct {
	Year           int
	ByDate         map[string]DayCount
	AvailableYears []int
	NotesFetched   int
	CommitsFetched int
}

// Option configures optional behaviour for the Aggregator.
type Option func(*Aggregator)

// WithLogger overrides the logger used to report capped fetches.
func WithLogger(logger *log.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithFetchLimit overrides the per-entity row cap.
func WithFetchLimit(limit int) Option {
	return func(a *Aggregator) {
		if limit > 0 {
			a.fetchLimit = limit
		}
	}
}

// WithClock overrides the clock used to resolve the current civil year.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// Aggregator builds YearActivity values. It holds no per-request state and is
// safe for concurrent use.
type Aggregator struct {
	source     StampSource
	fetchLimit int
	now        func() time.Time
	logger     *log.Logger
}

// NewAggregator constructs an Aggregator reading from source.
func NewAggregator(source StampSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:     source,
		fetchLimit: DefaultFetchLimit,
		now:        time.Now,
		logger:     log.New(log.Writer(), "[activity] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate fetches the user's notes and commits and buckets them into the civil days of year.
// A failure of either fetch fails the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, year int) (_ *YearActivity, err error) {
	started := time.Now()
	defer func() { observability.ObserveAggregation(started, err) }()

	year = ClampYear(year)

	var (
		notes   []domain.NoteStamp
		commits []domain.CommitStamp
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.source.ListNoteStamps(gctx, userID, a.fetchLimit)
		if err != nil {
			return fmt.Errorf("list note stamps: %w", err)
		}
		notes = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.source.ListCommitStamps(gctx, userID, a.fetchLimit)
		if err != nil {
			return fmt.Errorf("list commit stamps: %w", err)
		}
		commits = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.checkCap(userID, observability.EntityNotes, len(notes))
	a.checkCap(userID, observability.EntityCommits, len(commits))

	return &YearActivity{
		Year:           year,
		ByDate:         bucket(year, notes, commits),
		AvailableYears: availableYears(notes, commits, CurrentYear(a.now())),
		NotesFetched:   len(notes),
		CommitsFetched: len(commits),
	}, nil
}

func (a *Aggregator) checkCap(userID, entity string, n int) {
	observability.RecordRowsFetched(entity, n)
	if n >= a.fetchLimit {
		observability.RecordFetchCapReached(entity)
		a.logger.Printf("fetch cap reached (user=%s, entity=%s, limit=%d); rows older than the newest %d are not aggregated", userID, entity, a.fetchLimit, a.fetchLimit)
	}
}

// EmptyYear returns a zero-filled map with one entry per civil day of year.
func EmptyYear(year int) map[string]DayCount {
	start, end := YearBounds(year)
	byDate := make(map[string]DayCount, DaysIn(year))
	for t := start; t.Before(end); t = t.Add(Day) {
		byDate[DayKey(t)] = DayCount{}
	}
	return byDate
}

// Event is one dated contribution derived from a note or commit row.
type Event struct {
	Kind domain.EventKind
	At   time.Time
}

// Events derives the contributions of the given rows. A note edit yields a
// separate event only when it lands on another civil day than the creation.
// NULL timestamps yield nothing.
func Events(notes []domain.NoteStamp, commits []domain.CommitStamp) []Event {
	out := make([]Event, 0, 2*len(notes)+len(commits))
	for _, n := range notes {
		if !n.CreatedAt.IsZero() {
			out = append(out, Event{Kind: domain.EventNoteCreated, At: n.CreatedAt})
		}
		if !n.UpdatedAt.IsZero() && (n.CreatedAt.IsZero() || DayKey(n.UpdatedAt) != DayKey(n.CreatedAt)) {
			out = append(out, Event{Kind: domain.EventNoteUpdated, At: n.UpdatedAt})
		}
	}
	for _, c := range commits {
		if !c.CreatedAt.IsZero() {
			out = append(out, Event{Kind: domain.EventCommitCreated, At: c.CreatedAt})
		}
	}
	return out
}

func bucket(year int, notes []domain.NoteStamp, commits []domain.CommitStamp) map[string]DayCount {
	start, end := YearBounds(year)
	byDate := EmptyYear(year)

	for _, ev := range Events(notes, commits) {
		if ev.At.Before(start) || !ev.At.Before(end) {
			continue
		}
		key := DayKey(ev.At)
		day, ok := byDate[key]
		if !ok {
			continue
		}
		if ev.Kind == domain.EventCommitCreated {
			day.Commits++
		} else {
			day.Notes++
		}
		byDate[key] = day
	}
	return byDate
}

func availableYears(notes []domain.NoteStamp, commits []domain.CommitStamp, current int) []int {
	seen := make(map[int]struct{})
	record := func(t time.Time) {
		if !t.IsZero() {
			seen[CivilYear(t)] = struct{}{}
		}
	}
	for _, n := range notes {
		record(n.CreatedAt)
		record(n.UpdatedAt)
	}
	for _, c := range commits {
		record(c.CreatedAt)
	}
	if len(seen) == 0 {
		return []int{current}
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
