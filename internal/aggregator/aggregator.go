// Package aggregator owns the per-(symbol, interval) bar series: it backfills
// history through the paged fetcher, keeps the series current by draining the
// live feed, and derives the session windows, indicator series, and signal
// overlays served to consumers.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"klinehub/internal/domain"
	"klinehub/internal/feed"
	"klinehub/internal/instrumentation"
	"klinehub/internal/kvstore"
	"klinehub/internal/series"
	"klinehub/internal/session"
	"klinehub/internal/signals"
)

// Market fetches paged kline history from the upstream venue.
type Market interface {
	FetchHistory(ctx context.Context, symbol, interval string, targetCount int) ([]domain.Bar, int64, error)
}

// Feed delivers live per-topic updates on channels.
type Feed interface {
	Subscribe(topic string) (<-chan feed.Message, func())
}

// Options tune the aggregator.
type Options struct {
	// TargetCount is how many historical bars to backfill per series.
	TargetCount int
	// MaxLen bounds each in-memory series; zero means unbounded.
	MaxLen int
}

// tracking is the lifecycle state for one tracked series.
type tracking struct {
	store  *series.Store
	gen    uint64
	cancel context.CancelFunc
}

// Aggregator composes the fetcher, feed, and stores into the consumer-facing
// surface. All methods are safe for concurrent use.
type Aggregator struct {
	log     *slog.Logger
	anchor  session.Anchor
	market  Market
	feed    Feed
	config  kvstore.ConfigStore // nil when no config store is wired
	signals kvstore.SignalStore // nil when no signal store is wired
	metrics *instrumentation.Metrics
	opts    Options
	now     func() int64

	mu      sync.Mutex
	gen     uint64
	tracked map[series.Key]*tracking
}

// New creates an Aggregator. config, sigStore, and metrics may be nil.
func New(
	anchor session.Anchor,
	market Market,
	f Feed,
	config kvstore.ConfigStore,
	sigStore kvstore.SignalStore,
	metrics *instrumentation.Metrics,
	opts Options,
	log *slog.Logger,
) *Aggregator {
	if opts.TargetCount <= 0 {
		opts.TargetCount = 2000
	}
	return &Aggregator{
		log:     log.With("component", "aggregator"),
		anchor:  anchor,
		market:  market,
		feed:    f,
		config:  config,
		signals: sigStore,
		metrics: metrics,
		opts:    opts,
		now:     func() int64 { return time.Now().Unix() },
		tracked: make(map[series.Key]*tracking),
	}
}

// Track starts maintaining the series for (symbol, interval): backfill, then
// live merge. It is a no-op when the pair is already tracked.
func (a *Aggregator) Track(ctx context.Context, symbol, interval string) {
	key := series.Key{Symbol: symbol, Interval: interval}

	a.mu.Lock()
	if _, ok := a.tracked[key]; ok {
		a.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.gen++
	tr := &tracking{
		store:  series.NewStore(a.opts.MaxLen),
		gen:    a.gen,
		cancel: cancel,
	}
	a.tracked[key] = tr
	a.mu.Unlock()

	go a.run(runCtx, key, tr)
}

// Untrack stops maintaining a series and discards its state. Any in-flight
// fetch result for the old incarnation is dropped by the generation check.
func (a *Aggregator) Untrack(symbol, interval string) {
	key := series.Key{Symbol: symbol, Interval: interval}

	a.mu.Lock()
	tr, ok := a.tracked[key]
	if ok {
		delete(a.tracked, key)
	}
	a.mu.Unlock()

	if ok {
		tr.cancel()
	}
}

// Retrack tears a series down and starts a fresh incarnation, e.g. after the
// consumer switches symbol or interval.
func (a *Aggregator) Retrack(ctx context.Context, symbol, interval string) {
	a.Untrack(symbol, interval)
	a.Track(ctx, symbol, interval)
}

// Close stops every tracked series.
func (a *Aggregator) Close() {
	a.mu.Lock()
	trs := make([]*tracking, 0, len(a.tracked))
	for key, tr := range a.tracked {
		trs = append(trs, tr)
		delete(a.tracked, key)
	}
	a.mu.Unlock()

	for _, tr := range trs {
		tr.cancel()
	}
}

// isCurrent reports whether gen is still the live incarnation for key.
// Checked before every state mutation so stale results arriving after an
// Untrack/Retrack never corrupt the replacement series.
func (a *Aggregator) isCurrent(key series.Key, gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	tr, ok := a.tracked[key]
	return ok && tr.gen == gen
}

func (a *Aggregator) run(ctx context.Context, key series.Key, tr *tracking) {
	start := time.Now()
	bars, _, err := a.market.FetchHistory(ctx, key.Symbol, key.Interval, a.opts.TargetCount)
	if err != nil && ctx.Err() == nil {
		// The fetcher hands back whatever it gathered before failing; a
		// partial series still seeds the store and the live merge extends it.
		a.log.Error("history backfill degraded",
			"symbol", key.Symbol,
			"interval", key.Interval,
			"bars", len(bars),
			"error", err,
		)
		a.metrics.RecordError("aggregator", "backfill")
	}
	if len(bars) > 0 {
		if !a.isCurrent(key, tr.gen) {
			a.log.Debug("discarding stale backfill", "symbol", key.Symbol, "interval", key.Interval)
			return
		}
		tr.store.ReplaceAll(bars)
		a.metrics.RecordFetch(time.Since(start).Seconds())
		a.log.Info("series backfilled",
			"symbol", key.Symbol,
			"interval", key.Interval,
			"bars", len(bars),
			"took", time.Since(start).Round(time.Millisecond),
		)
	}

	ch, unsub := a.feed.Subscribe(feed.KlineTopic(key.Interval, key.Symbol))
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Kline == nil {
				continue
			}
			if !a.isCurrent(key, tr.gen) {
				return
			}
			applied := tr.store.Merge(domain.Bar{
				Time:  msg.Kline.Start,
				Open:  msg.Kline.Open,
				High:  msg.Kline.High,
				Low:   msg.Kline.Low,
				Close: msg.Kline.Close,
			})
			if !applied {
				a.metrics.RecordMergeDrop()
			}
			a.metrics.RecordLiveMessage("kline")
		}
	}
}

func (a *Aggregator) storeFor(symbol, interval string) (*series.Store, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tr, ok := a.tracked[series.Key{Symbol: symbol, Interval: interval}]
	if !ok {
		return nil, false
	}
	return tr.store, true
}

// Series returns a copy of the raw bar series for a tracked pair.
func (a *Aggregator) Series(symbol, interval string) ([]domain.Bar, error) {
	st, ok := a.storeFor(symbol, interval)
	if !ok {
		return nil, fmt.Errorf("series %s/%s is not tracked", symbol, interval)
	}
	return st.Snapshot(), nil
}

// Window returns the fixed-cadence render sequence for the session at
// offsetDays from now, together with the window bounds. Offset 0 is the
// running session; its unrealized remainder renders as whitespace.
func (a *Aggregator) Window(symbol, interval string, offsetDays int) ([]domain.ChartPoint, int64, int64, error) {
	st, ok := a.storeFor(symbol, interval)
	if !ok {
		return nil, 0, 0, fmt.Errorf("series %s/%s is not tracked", symbol, interval)
	}

	now := a.now()
	start, end := a.anchor.DayWindow(now, offsetDays)
	bars := st.Snapshot()
	if offsetDays >= 0 {
		return series.RenderWindowLive(bars, start, end, now), start, end, nil
	}
	return series.RenderWindow(bars, start, end), start, end, nil
}

// IndicatorSet carries the derived series for one session window.
type IndicatorSet struct {
	MA    []series.MAPoint `json:"ma"`
	Upper []series.MAPoint `json:"upper,omitempty"`
	Lower []series.MAPoint `json:"lower,omitempty"`
}

// Indicators computes the moving average and envelope bands for the session
// at offsetDays, using a lookback buffer so the MA is populated from the
// session's first bar. A non-positive thr yields no bands.
func (a *Aggregator) Indicators(symbol, interval string, offsetDays, window int, thr float64) (IndicatorSet, error) {
	st, ok := a.storeFor(symbol, interval)
	if !ok {
		return IndicatorSet{}, fmt.Errorf("series %s/%s is not tracked", symbol, interval)
	}
	if window <= 0 {
		return IndicatorSet{}, fmt.Errorf("window must be positive, got %d", window)
	}

	start, end := a.anchor.DayWindow(a.now(), offsetDays)
	buffered := series.SliceWithBuffer(st.Snapshot(), start, end, window)

	ma := series.SMA(buffered, window)
	// Points owed entirely to buffer bars fall before the visible window.
	trimmed := ma[:0:0]
	for _, p := range ma {
		if p.Time >= start {
			trimmed = append(trimmed, p)
		}
	}

	set := IndicatorSet{MA: trimmed}
	set.Upper, set.Lower = series.Envelope(trimmed, thr)
	return set, nil
}

// Markers loads the symbol's signal log, annotates it with per-session
// sequence numbers, and filters it to the session at offsetDays. Without a
// signal store the overlay is empty.
func (a *Aggregator) Markers(ctx context.Context, symbol string, offsetDays int) (signals.Annotation, error) {
	if a.signals == nil {
		return signals.Annotation{}, nil
	}
	events, err := a.signals.Signals(ctx, symbol)
	if err != nil {
		a.metrics.RecordError("aggregator", "signals")
		return signals.Annotation{}, fmt.Errorf("loading signals for %s: %w", symbol, err)
	}

	start, end := a.anchor.DayWindow(a.now(), offsetDays)
	return signals.Annotate(a.anchor, events).FilterWindow(start, end), nil
}

// Thresholds fetches the symbol's configuration snapshot. Without a config
// store, or when the symbol has none, the result is nil.
func (a *Aggregator) Thresholds(ctx context.Context, symbol string) (*domain.Thresholds, error) {
	if a.config == nil {
		return nil, nil
	}
	return a.config.Thresholds(ctx, symbol)
}
