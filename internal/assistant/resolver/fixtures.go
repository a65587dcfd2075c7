package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"ledger-assistant/internal/assistant/candidates"
	"ledger-assistant/internal/assistant/normalize"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

// ErrSuperseded is returned when a newer lookup for the same key started
// before this one finished.
var ErrSuperseded = errors.New("fixture lookup superseded")

// Searcher is the external event catalog.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Fixture, error)
}

// LookupRecorder observes individual catalog lookups.
type LookupRecorder interface {
	RecordCatalogLookup(outcome string, duration time.Duration)
}

// Whole-token status codes for fixtures that can no longer be traded.
var terminalCodes = map[string]bool{
	"FT": true, "AET": true, "PEN": true, "HT": true, "1H": true, "2H": true,
	"ET": true, "BT": true, "P": true, "INT": true, "SUSP": true, "PST": true,
	"CANC": true, "ABD": true, "AWD": true, "WO": true,
}

// Status fragments matched anywhere in the status text.
var terminalMarkers = []string{
	"CANCEL", "POSTPON", "ABANDON", "FINISH", "LIVE", "IN_PLAY", "INPLAY", "SUSPEND",
}

// IsTerminalStatus reports whether status marks a finished, live or
// cancelled fixture.
func IsTerminalStatus(status string) bool {
	upper := strings.ToUpper(strings.TrimSpace(status))
	if upper == "" {
		return false
	}
	for _, marker := range terminalMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	parts := strings.FieldsFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, p := range parts {
		if terminalCodes[p] {
			return true
		}
	}
	return false
}

type FixtureResolver struct {
	searcher   Searcher
	logger     logger.Logger
	recorder   LookupRecorder
	maxQueries int
	timeout    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflightLookup
}

type inflightLookup struct {
	id     uint64
	cancel context.CancelFunc
}

type Option func(*FixtureResolver)

func WithMaxQueries(n int) Option {
	return func(r *FixtureResolver) {
		if n > 0 {
			r.maxQueries = n
		}
	}
}

func WithLookupTimeout(d time.Duration) Option {
	return func(r *FixtureResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *FixtureResolver) { r.now = now }
}

func WithRecorder(rec LookupRecorder) Option {
	return func(r *FixtureResolver) { r.recorder = rec }
}

func NewFixtureResolver(searcher Searcher, log logger.Logger, opts ...Option) *FixtureResolver {
	r := &FixtureResolver{
		searcher:   searcher,
		logger:     log.WithFields(map[string]interface{}{"component": "fixture-resolver"}),
		maxQueries: candidates.DefaultLimit,
		timeout:    3 * time.Second,
		now:        time.Now,
		inflight:   make(map[string]inflightLookup),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve searches the catalog for phrase and returns upcoming fixtures that
// match it, soonest first. key names the logical field being resolved; a
// newer Resolve with the same key abandons this one with ErrSuperseded.
func (r *FixtureResolver) Resolve(ctx context.Context, key, phrase string) ([]models.Fixture, error) {
	ctx, id := r.begin(ctx, key)
	defer r.finish(key, id)

	normalized := normalize.Normalize(phrase).Normalized
	queries := candidates.Build(normalized, r.maxQueries)
	if len(queries) == 0 {
		return []models.Fixture{}, nil
	}

	collected := r.collect(ctx, queries)
	if r.superseded(key, id) {
		return nil, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := r.filter(normalized, collected)
	r.logger.Info("fixtures resolved", map[string]interface{}{
		"phrase":    normalized,
		"queries":   len(queries),
		"collected": len(collected),
		"matched":   len(ranked),
	})
	return ranked, nil
}

// AutoSelect returns the soonest matching fixture, if any.
func (r *FixtureResolver) AutoSelect(ctx context.Context, key, phrase string) (*models.Fixture, error) {
	ranked, err := r.Resolve(ctx, key, phrase)
	if err != nil || len(ranked) == 0 {
		return nil, err
	}
	f := ranked[0]
	return &f, nil
}

func (r *FixtureResolver) begin(parent context.Context, key string) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.inflight[key]; ok {
		prev.cancel()
	}
	r.seq++
	r.inflight[key] = inflightLookup{id: r.seq, cancel: cancel}
	return ctx, r.seq
}

func (r *FixtureResolver) finish(key string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.inflight[key]; ok && cur.id == id {
		cur.cancel()
		delete(r.inflight, key)
	}
}

func (r *FixtureResolver) superseded(key string, id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.inflight[key]
	return !ok || cur.id != id
}

// collect runs every query concurrently. A failed or slow lookup contributes
// nothing; it never fails the whole resolution.
func (r *FixtureResolver) collect(ctx context.Context, queries []string) []models.Fixture {
	results := make([][]models.Fixture, len(queries))

	var g errgroup.Group
	g.SetLimit(len(queries))
	for i, q := range queries {
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			start := time.Now()
			found, err := r.searcher.Search(lookupCtx, q)
			outcome := "ok"
			if err != nil {
				outcome = "error"
				if errors.Is(err, context.DeadlineExceeded) {
					outcome = "timeout"
				}
				r.logger.Warn("catalog lookup failed", map[string]interface{}{
					"query": q,
					"error": err.Error(),
				})
				found = nil
			}
			if r.recorder != nil {
				r.recorder.RecordCatalogLookup(outcome, time.Since(start))
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var out []models.Fixture
	for _, batch := range results {
		for _, f := range batch {
			k := f.DedupKey()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, f)
		}
	}
	return out
}

func (r *FixtureResolver) filter(normalized string, fixtures []models.Fixture) []models.Fixture {
	seg := candidates.Split(normalized)
	now := r.now()

	type dated struct {
		f models.Fixture
		t time.Time
	}
	var kept []dated
	for _, f := range fixtures {
		if !matchesSegments(seg, f) {
			continue
		}
		when, ok := f.ParsedDate()
		if !ok || !when.After(now) {
			continue
		}
		if IsTerminalStatus(f.Status) {
			continue
		}
		kept = append(kept, dated{f: f, t: when})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].t.Before(kept[j].t)
	})

	out := make([]models.Fixture, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.f)
	}
	return out
}

func matchesSegments(seg candidates.Segments, f models.Fixture) bool {
	home := strings.ToLower(f.HomeTeam)
	away := strings.ToLower(f.AwayTeam)

	if len(seg.Home) == 0 && len(seg.Away) == 0 {
		both := home + " " + away
		for _, tok := range seg.Tokens {
			if !strings.Contains(both, tok) {
				return false
			}
		}
		return true
	}
	for _, tok := range seg.Home {
		if !strings.Contains(home, tok) {
			return false
		}
	}
	for _, tok := range seg.Away {
		if !strings.Contains(away, tok) {
			return false
		}
	}
	return true
}

// ToCandidates converts ranked fixtures into disambiguation candidates.
func ToCandidates(fixtures []models.Fixture) []models.EntityCandidate {
	out := make([]models.EntityCandidate, 0, len(fixtures))
	for i, f := range fixtures {
		c := models.EntityCandidate{
			ID:          f.DedupKey(),
			DisplayName: f.DisplayName(),
			Score:       1 / float64(i+1),
			Detail:      f.League,
		}
		if t, ok := f.ParsedDate(); ok {
			c.Date = &t
		}
		out = append(out, c)
	}
	return out
}
