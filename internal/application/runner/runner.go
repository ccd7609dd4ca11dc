package runner

// runner.go — one backtest run end to end: resolve the strategy, fetch
// the market instances and their candles, walk the simulation, persist
// and report the result.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/backtest"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/ports"
)

// CandleKey selects the identifier handed to the CandleProvider for a
// market instance.
type CandleKey func(s domain.Strategy, m domain.MarketInstance) string

// TokenKey keys candle fetches by CLOB token (contract price candles).
func TokenKey(_ domain.Strategy, m domain.MarketInstance) string { return m.TokenID }

// AssetKey keys candle fetches by asset symbol (underlying spot candles).
func AssetKey(s domain.Strategy, _ domain.MarketInstance) string { return s.Asset }

// Runner wires the ports together for one backtest run.
type Runner struct {
	markets    ports.MarketProvider
	candles    ports.CandleProvider
	indicators ports.IndicatorProvider
	store      ports.Storage  // nil: results are not persisted
	notifier   ports.Notifier // nil: no report is rendered
	candleKey  CandleKey
	workers    int
}

// New builds a Runner. store and notifier may be nil.
func New(
	markets ports.MarketProvider,
	candles ports.CandleProvider,
	indicators ports.IndicatorProvider,
	store ports.Storage,
	notifier ports.Notifier,
	candleKey CandleKey,
	workers int,
) *Runner {
	if candleKey == nil {
		candleKey = TokenKey
	}
	return &Runner{
		markets:    markets,
		candles:    candles,
		indicators: indicators,
		store:      store,
		notifier:   notifier,
		candleKey:  candleKey,
		workers:    workers,
	}
}

// Run executes one backtest request. Strategy validation and compile
// problems are fatal; per-market problems surface as categorized
// failures inside the result.
func (r *Runner) Run(ctx context.Context, req domain.BacktestRequest) (domain.BacktestResult, error) {
	strategy, err := r.resolveStrategy(ctx, req)
	if err != nil {
		return domain.BacktestResult{}, err
	}

	cs, err := backtest.Compile(strategy, req.ExitPriceCents)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("runner.Run: %s: %w", domain.FailConfigError, err)
	}

	balance := req.InitialBalance
	if balance <= 0 {
		return domain.BacktestResult{}, fmt.Errorf("runner.Run: %s: initial balance must be positive", domain.FailConfigError)
	}

	started := time.Now()
	instances, err := r.markets.FetchResolvedMarkets(ctx, strategy.Asset, req.StartTime, req.EndTime, req.NumberOfMarkets)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("runner.Run: fetch markets: %w", err)
	}
	if len(instances) == 0 {
		return domain.BacktestResult{}, fmt.Errorf("runner.Run: no resolved markets for %s in the requested window", strategy.Asset)
	}

	r.fetchCandles(ctx, strategy, instances)

	engine := backtest.NewEngine(cs, r.indicators)
	result, runErr := engine.Run(ctx, instances, balance)
	if runErr != nil {
		return result, fmt.Errorf("runner.Run: %w", runErr)
	}
	result.RunID = uuid.NewString()

	slog.Info("backtest complete",
		"run_id", result.RunID,
		"strategy", strategy.Name,
		"markets", result.MarketsTested,
		"trades", len(result.Trades),
		"final_balance", result.FinalBalance,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	if r.store != nil {
		if err := r.store.SaveRun(ctx, result); err != nil {
			slog.Error("save run failed", "run_id", result.RunID, "err", err)
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, result); err != nil {
			slog.Error("notify failed", "run_id", result.RunID, "err", err)
		}
	}

	return result, nil
}

// resolveStrategy loads the stored strategy or normalizes the inline one.
func (r *Runner) resolveStrategy(ctx context.Context, req domain.BacktestRequest) (domain.Strategy, error) {
	switch {
	case req.Strategy != nil:
		s := *req.Strategy
		domain.ApplyDefaults(&s)
		if err := domain.ExpandPresets(&s); err != nil {
			return domain.Strategy{}, fmt.Errorf("runner.Run: %s: %w", domain.FailConfigError, err)
		}
		if err := s.Validate(); err != nil {
			return domain.Strategy{}, fmt.Errorf("runner.Run: %s: %w", domain.FailConfigError, err)
		}
		return s, nil
	case req.StrategyID != "":
		if r.store == nil {
			return domain.Strategy{}, fmt.Errorf("runner.Run: %s: strategy id given but no storage configured", domain.FailConfigError)
		}
		s, err := r.store.GetStrategy(ctx, req.StrategyID)
		if err != nil {
			return domain.Strategy{}, fmt.Errorf("runner.Run: load strategy: %w", err)
		}
		return s, nil
	}
	return domain.Strategy{}, fmt.Errorf("runner.Run: %s: neither strategy nor strategy id given", domain.FailConfigError)
}

// fetchCandles fills the Candles of every instance using a worker pool.
// Each worker writes to its own instance index, so no locking is needed
// on the slice. Fetch errors leave the instance without candles; the
// simulation reports those as data gaps.
func (r *Runner) fetchCandles(ctx context.Context, s domain.Strategy, instances []domain.MarketInstance) {
	workers := r.workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(instances) {
		workers = len(instances)
	}

	tf := s.Timeframe
	workCh := make(chan int, len(instances))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				m := &instances[idx]
				key := r.candleKey(s, *m)
				candles, err := r.candles.FetchCandles(ctx, key, tf, m.StartTime, m.EndTime)
				if err != nil {
					slog.Debug("candle fetch failed",
						"market", m.Label(),
						"key", key,
						"err", err,
					)
					continue
				}
				m.Candles = candles
			}
		}()
	}

	for idx := range instances {
		workCh <- idx
	}
	close(workCh)
	wg.Wait()

	fetched := 0
	for i := range instances {
		if len(instances[i].Candles) > 0 {
			fetched++
		}
	}
	slog.Debug("candle prefetch complete",
		"instances", len(instances),
		"with_candles", fetched,
		"workers", workers,
	)
}
