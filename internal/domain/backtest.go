package domain

import "time"

// Side labels one leg of the simulated trade log.
// LOSS is reserved for a zero settlement payout; every pre-settlement
// exit is a SELL even when its pnl is negative.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideLoss Side = "LOSS"
)

// FailureCategory classifies the non-fatal problems of a run.
type FailureCategory string

const (
	FailConfigError           FailureCategory = "ConfigError"
	FailDataGapWarning        FailureCategory = "DataGapWarning"
	FailRiskBlocked           FailureCategory = "RiskBlocked"
	FailResolutionUnavailable FailureCategory = "ResolutionUnavailable"
)

// RunFailure is one categorized problem encountered during a run. These
// are returned alongside the numeric summary, not merely logged.
type RunFailure struct {
	Category FailureCategory `json:"category"`
	MarketID string          `json:"marketId,omitempty"`
	Reason   string          `json:"reason"`
}

// BacktestRequest asks for one evaluation run. Either Strategy (inline)
// or StrategyID (stored) must be set; either NumberOfMarkets or the
// StartTime/EndTime window selects the market instances.
type BacktestRequest struct {
	Strategy        *Strategy `json:"strategy,omitempty"`
	StrategyID      string    `json:"strategyId,omitempty"`
	NumberOfMarkets int       `json:"numberOfMarkets,omitempty"`
	StartTime       time.Time `json:"startTime,omitempty"`
	EndTime         time.Time `json:"endTime,omitempty"`
	InitialBalance  float64   `json:"initialBalance"`
	ExitPriceCents  int       `json:"exitPrice,omitempty"` // integer cents 1-99, overrides strategy exit
}

// BacktestTrade is one leg of the simulated trade log. Price is a
// decimal in [0,1]; PnL is present only on closing legs.
type BacktestTrade struct {
	Timestamp     time.Time `json:"timestamp"`
	Side          Side      `json:"side"`
	Price         float64   `json:"price"`
	Shares        int       `json:"shares"`
	Value         float64   `json:"value"`
	PnL           *float64  `json:"pnl,omitempty"`
	Balance       float64   `json:"balance"`
	TriggerReason string    `json:"triggerReason,omitempty"`
}

// Closing reports whether the leg closes a position.
func (t BacktestTrade) Closing() bool {
	return t.PnL != nil
}

// BacktestResult is the immutable outcome of one run.
type BacktestResult struct {
	RunID              string          `json:"runId"`
	StrategyID         string          `json:"strategyId"`
	StrategyName       string          `json:"strategyName"`
	StartTime          time.Time       `json:"startTime"`
	EndTime            time.Time       `json:"endTime"`
	InitialBalance     float64         `json:"initialBalance"`
	FinalBalance       float64         `json:"finalBalance"`
	TotalPnl           float64         `json:"totalPnl"`
	TotalPnlPercent    float64         `json:"totalPnlPercent"`
	TotalTrades        int             `json:"totalTrades"`
	WinningTrades      int             `json:"winningTrades"`
	LosingTrades       int             `json:"losingTrades"`
	WinRate            float64         `json:"winRate"`
	AvgWin             float64         `json:"avgWin"`
	AvgLoss            float64         `json:"avgLoss"`
	ProfitFactor       float64         `json:"profitFactor"`
	MaxDrawdown        float64         `json:"maxDrawdown"`
	MaxDrawdownPercent float64         `json:"maxDrawdownPercent"`
	SharpeRatio        float64         `json:"sharpeRatio"`
	Trades             []BacktestTrade `json:"trades"`
	CandlesProcessed   int             `json:"candlesProcessed"`
	ConditionsTriggered int            `json:"conditionsTriggered"`
	MarketsTested      int             `json:"marketsTested"`
	MarketsFailed      int             `json:"marketsFailed"`
	Failures           []RunFailure    `json:"failures,omitempty"`
}
