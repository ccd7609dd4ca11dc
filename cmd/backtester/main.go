package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"github.com/LTOFFICIALUK/polyvec-sub002/config"
	binanceadapter "github.com/LTOFFICIALUK/polyvec-sub002/internal/adapters/binance"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/adapters/notify"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/adapters/polymarket"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/adapters/storage"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/application/runner"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/indicators"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	strategyFile := flag.String("strategy", "", "path to a strategy YAML file")
	strategyID := flag.String("strategy-id", "", "id of a stored strategy")
	save := flag.Bool("save", false, "persist the strategy file to storage before running")
	list := flag.Bool("list", false, "list stored strategies and exit")
	history := flag.Int("history", 0, "show the last N runs of -strategy-id and exit")
	markets := flag.Int("markets", 0, "number of market instances to test (overrides config)")
	balance := flag.Float64("balance", 0, "initial balance (overrides config)")
	exitPrice := flag.Int("exit-price", 0, "fixed exit price in cents 1-99 (overrides strategy)")
	from := flag.String("from", "", "window start, YYYY-MM-DD or RFC3339")
	to := flag.String("to", "", "window end, YYYY-MM-DD or RFC3339")
	source := flag.String("source", "", "candle source: polymarket|binance (overrides config)")
	jsonOut := flag.Bool("json", false, "print the result as JSON instead of the report")
	verbose := flag.Bool("verbose", false, "set log level to debug, show full trade log")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *source != "" {
		cfg.Backtest.CandleSource = *source
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *list {
		listStrategies(ctx, store)
		return
	}
	if *history > 0 {
		listRuns(ctx, store, *strategyID, *history)
		return
	}

	req := domain.BacktestRequest{
		StrategyID:      *strategyID,
		NumberOfMarkets: cfg.Backtest.NumberOfMarkets,
		InitialBalance:  cfg.Backtest.InitialBalance,
		ExitPriceCents:  *exitPrice,
	}
	if *markets > 0 {
		req.NumberOfMarkets = *markets
	}
	if *balance > 0 {
		req.InitialBalance = *balance
	}
	req.StartTime = parseTimeFlag(*from)
	req.EndTime = parseTimeFlag(*to)

	if *strategyFile != "" {
		s, err := loadStrategyFile(*strategyFile)
		if err != nil {
			slog.Error("failed to load strategy", "err", err, "path", *strategyFile)
			os.Exit(1)
		}
		if *save {
			if err := store.SaveStrategy(ctx, s); err != nil {
				slog.Error("failed to save strategy", "err", err, "id", s.ID)
				os.Exit(1)
			}
			slog.Info("strategy saved", "id", s.ID, "name", s.Name)
		}
		req.Strategy = &s
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	var candleProvider ports.CandleProvider
	var candleKey runner.CandleKey
	switch cfg.Backtest.CandleSource {
	case "binance":
		candleProvider = binanceadapter.NewProvider(gobinance.NewClient("", ""))
		candleKey = runner.AssetKey
	default:
		candleProvider = client
		candleKey = runner.TokenKey
	}

	var notifier ports.Notifier
	if !*jsonOut {
		notifier = notify.NewConsole(*verbose)
	}

	r := runner.New(client, candleProvider, indicators.New(), store, notifier, candleKey, cfg.Backtest.Workers)

	runCtx, cancelRun := context.WithTimeout(ctx, cfg.RunTimeout())
	defer cancelRun()

	result, err := r.Run(runCtx, req)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			slog.Error("encode result", "err", err)
			os.Exit(1)
		}
	}
}

// loadStrategyFile reads and normalizes a strategy YAML file.
func loadStrategyFile(path string) (domain.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Strategy{}, err
	}
	return domain.ParseStrategyYAML(data)
}

func listStrategies(ctx context.Context, store *storage.SQLiteStorage) {
	strats, err := store.ListStrategies(ctx)
	if err != nil {
		slog.Error("list strategies", "err", err)
		os.Exit(1)
	}
	if len(strats) == 0 {
		fmt.Println("no stored strategies")
		return
	}
	for _, s := range strats {
		fmt.Printf("%s  %-30s %s %s  rungs:%d conds:%d\n",
			s.ID, s.Name, s.Asset, s.Direction, len(s.OrderLadder), len(s.Conditions))
	}
}

func listRuns(ctx context.Context, store *storage.SQLiteStorage, strategyID string, limit int) {
	if strategyID == "" {
		slog.Error("-history requires -strategy-id")
		os.Exit(1)
	}
	runs, err := store.ListRuns(ctx, strategyID, limit)
	if err != nil {
		slog.Error("list runs", "err", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded for", strategyID)
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %s to %s  $%.2f -> $%.2f  trades:%d win:%.0f%% pf:%.2f\n",
			r.RunID,
			r.StartTime.Format("2006-01-02"), r.EndTime.Format("2006-01-02"),
			r.InitialBalance, r.FinalBalance,
			r.TotalTrades, r.WinRate, r.ProfitFactor)
	}
}

// parseTimeFlag accepts a date or a full timestamp; empty stays zero.
func parseTimeFlag(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	slog.Warn("unparseable time flag ignored", "value", v)
	return time.Time{}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
