package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Direction is the side of the binary market the strategy bets on.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// ConditionLogic combines individual condition results into one trigger.
type ConditionLogic string

const (
	LogicAll ConditionLogic = "ALL"
	LogicAny ConditionLogic = "ANY"
)

// Operator compares two sources per candle.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "equal to"
	OpCrossesAbove Operator = "crosses above"
	OpCrossesBelow Operator = "crosses below"
)

// CandleRef selects which candle a condition samples.
type CandleRef string

const (
	CandleCurrent  CandleRef = "current"
	CandlePrevious CandleRef = "previous"
)

// IndicatorType enumerates the supported technical indicators.
type IndicatorType string

const (
	IndicatorRSI            IndicatorType = "RSI"
	IndicatorMACD           IndicatorType = "MACD"
	IndicatorSMA            IndicatorType = "SMA"
	IndicatorEMA            IndicatorType = "EMA"
	IndicatorBollingerBands IndicatorType = "BollingerBands"
	IndicatorStochastic     IndicatorType = "Stochastic"
	IndicatorATR            IndicatorType = "ATR"
	IndicatorVWAP           IndicatorType = "VWAP"
	IndicatorRollingUpPct   IndicatorType = "RollingUpPct"
)

// UnfilledOrderBehavior controls what happens to ladder rungs that never fill.
type UnfilledOrderBehavior string

const (
	UnfilledKeepOpen        UnfilledOrderBehavior = "keep_open"
	UnfilledCancelAfter     UnfilledOrderBehavior = "cancel_after_seconds"
	UnfilledCancelNextClose UnfilledOrderBehavior = "cancel_next_close"
	UnfilledMarketOrder     UnfilledOrderBehavior = "market_order"
)

// ActionKind is what an action does when its condition fires.
type ActionKind string

const (
	ActionOpen  ActionKind = "open"
	ActionClose ActionKind = "close"
)

// Strategy is the full user-authored definition of an automated strategy.
// A backtest run operates on a snapshot; nothing here mutates mid-run.
type Strategy struct {
	ID                 string           `yaml:"id" json:"id"`
	Name               string           `yaml:"name" json:"name"`
	Asset              string           `yaml:"asset" json:"asset"`
	Direction          Direction        `yaml:"direction" json:"direction"`
	Timeframe          Timeframe        `yaml:"timeframe" json:"timeframe"`
	Indicators         []Indicator      `yaml:"indicators" json:"indicators"`
	Conditions         []Condition      `yaml:"conditions" json:"conditions"`
	ConditionLogic     ConditionLogic   `yaml:"condition_logic" json:"conditionLogic"`
	Actions            []Action         `yaml:"actions" json:"actions"`
	OrderLadder        []OrderLadderItem `yaml:"order_ladder" json:"orderLadder"`
	RiskLimits         RiskLimits       `yaml:"risk_limits" json:"riskLimits"`
	Schedule           Schedule         `yaml:"schedule" json:"schedule"`
	TradeOnEventsCount int              `yaml:"trade_on_events_count" json:"tradeOnEventsCount"`
	Exit               ExitRules        `yaml:"exit" json:"exit"`
	Presets            []string         `yaml:"presets,omitempty" json:"presets,omitempty"`
}

// Indicator declares one indicator instance used by the conditions.
// Preset is a construction-time tag only; nothing reads it at evaluation time.
type Indicator struct {
	ID         string             `yaml:"id" json:"id"`
	Type       IndicatorType      `yaml:"type" json:"type"`
	Timeframe  Timeframe          `yaml:"timeframe,omitempty" json:"timeframe,omitempty"`
	Parameters map[string]float64 `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Preset     string             `yaml:"preset,omitempty" json:"preset,omitempty"`
}

// Condition compares sourceA against sourceB or a constant value.
// A source is "open"/"high"/"low"/"close" or "indicator_<id>[.<line>]".
type Condition struct {
	ID      string    `yaml:"id" json:"id"`
	SourceA string    `yaml:"source_a" json:"sourceA"`
	Operator Operator `yaml:"operator" json:"operator"`
	SourceB string    `yaml:"source_b,omitempty" json:"sourceB,omitempty"`
	Value   *float64  `yaml:"value,omitempty" json:"value,omitempty"`
	Value2  *float64  `yaml:"value2,omitempty" json:"value2,omitempty"`
	Candle  CandleRef `yaml:"candle,omitempty" json:"candle,omitempty"`
}

// Action links a condition to what the engine should do when it fires.
type Action struct {
	ConditionID  string     `yaml:"condition_id" json:"conditionId"`
	Kind         ActionKind `yaml:"kind" json:"kind"`
	Direction    Direction  `yaml:"direction,omitempty" json:"direction,omitempty"`
	TargetMarket string     `yaml:"target_market,omitempty" json:"targetMarket,omitempty"`
	OrderType    string     `yaml:"order_type,omitempty" json:"orderType,omitempty"`
	Shares       int        `yaml:"shares,omitempty" json:"shares,omitempty"`
}

// OrderLadderItem is one limit-order rung. PriceCents is the contract
// price in integer cents, 1-99 inclusive.
type OrderLadderItem struct {
	PriceCents int `yaml:"price_cents" json:"price"`
	Shares     int `yaml:"shares" json:"shares"`
}

// RiskLimits gate new entries. A zero value means unconstrained.
type RiskLimits struct {
	MaxDailyLoss      float64 `yaml:"max_daily_loss,omitempty" json:"maxDailyLoss,omitempty"`
	DailyTradeCap     int     `yaml:"daily_trade_cap,omitempty" json:"dailyTradeCap,omitempty"`
	MaxOpenPositions  int     `yaml:"max_open_positions,omitempty" json:"maxOpenPositions,omitempty"`
	MaxPositionShares int     `yaml:"max_position_shares,omitempty" json:"maxPositionShares,omitempty"`
	MaxPositionDollar float64 `yaml:"max_position_dollar,omitempty" json:"maxPositionDollar,omitempty"`
}

// Schedule gates trigger evaluation by calendar rules.
// Empty Days and StartHour==EndHour==0 means always allowed.
type Schedule struct {
	NewCandleOnly bool     `yaml:"new_candle_only,omitempty" json:"newCandleOnly,omitempty"`
	Days          []string `yaml:"days,omitempty" json:"days,omitempty"`
	StartHour     int      `yaml:"start_hour,omitempty" json:"startHour,omitempty"`
	EndHour       int      `yaml:"end_hour,omitempty" json:"endHour,omitempty"`
}

// Allows reports whether trigger evaluation is permitted at t (UTC).
func (s Schedule) Allows(t time.Time) bool {
	t = t.UTC()
	if len(s.Days) > 0 {
		day := strings.ToLower(t.Weekday().String()[:3])
		found := false
		for _, d := range s.Days {
			if strings.ToLower(d)[:min(3, len(d))] == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.StartHour == 0 && s.EndHour == 0 {
		return true
	}
	h := t.Hour()
	if s.StartHour <= s.EndHour {
		return h >= s.StartHour && h < s.EndHour
	}
	// window wraps midnight
	return h >= s.StartHour || h < s.EndHour
}

// ExitRules describe how an open position is closed before settlement.
type ExitRules struct {
	ExitPriceCents     int                   `yaml:"exit_price_cents,omitempty" json:"exitPrice,omitempty"`
	StopLossPct        float64               `yaml:"stop_loss_pct,omitempty" json:"stopLossPct,omitempty"`
	TakeProfitPct      float64               `yaml:"take_profit_pct,omitempty" json:"takeProfitPct,omitempty"`
	Unfilled           UnfilledOrderBehavior `yaml:"unfilled_order_behavior,omitempty" json:"unfilledOrderBehavior,omitempty"`
	CancelAfterSeconds int                   `yaml:"cancel_after_seconds,omitempty" json:"cancelAfterSeconds,omitempty"`
}

// CentsToPrice converts an integer-cents configuration price to the
// decimal [0,1] price used everywhere inside the simulation. This is the
// single unit boundary: it runs once at strategy compile time and is
// never re-derived mid-simulation.
func CentsToPrice(cents int) float64 {
	return float64(cents) / 100
}

// PriceField reports whether the source string names a raw candle field.
func PriceField(source string) bool {
	switch strings.ToLower(source) {
	case "open", "high", "low", "close":
		return true
	}
	return false
}

// indicatorByID returns the declared indicator with the given id.
func (s Strategy) indicatorByID(id string) (Indicator, bool) {
	for _, ind := range s.Indicators {
		if ind.ID == id {
			return ind, true
		}
	}
	return Indicator{}, false
}

// Validate rejects configuration errors before a run starts. It checks
// everything the simulation assumes so nothing surfaces mid-run.
func (s Strategy) Validate() error {
	if s.Direction != DirectionUp && s.Direction != DirectionDown {
		return fmt.Errorf("strategy %q: invalid direction %q", s.Name, s.Direction)
	}
	if s.ConditionLogic != LogicAll && s.ConditionLogic != LogicAny {
		return fmt.Errorf("strategy %q: invalid condition logic %q", s.Name, s.ConditionLogic)
	}
	if s.TradeOnEventsCount < 1 {
		return fmt.Errorf("strategy %q: tradeOnEventsCount must be >= 1, got %d", s.Name, s.TradeOnEventsCount)
	}
	if len(s.OrderLadder) == 0 {
		return fmt.Errorf("strategy %q: order ladder is empty", s.Name)
	}
	for i, rung := range s.OrderLadder {
		if rung.PriceCents < 1 || rung.PriceCents > 99 {
			return fmt.Errorf("strategy %q: ladder rung %d price %d¢ outside 1-99", s.Name, i, rung.PriceCents)
		}
		if rung.Shares <= 0 {
			return fmt.Errorf("strategy %q: ladder rung %d has non-positive shares %d", s.Name, i, rung.Shares)
		}
	}
	if p := s.Exit.ExitPriceCents; p != 0 && (p < 1 || p > 99) {
		return fmt.Errorf("strategy %q: exit price %d¢ outside 1-99", s.Name, p)
	}

	seen := make(map[string]bool, len(s.Indicators))
	for _, ind := range s.Indicators {
		if ind.ID == "" {
			return fmt.Errorf("strategy %q: indicator with empty id", s.Name)
		}
		if seen[ind.ID] {
			return fmt.Errorf("strategy %q: duplicate indicator id %q", s.Name, ind.ID)
		}
		seen[ind.ID] = true
		switch ind.Type {
		case IndicatorRSI, IndicatorMACD, IndicatorSMA, IndicatorEMA,
			IndicatorBollingerBands, IndicatorStochastic, IndicatorATR,
			IndicatorVWAP, IndicatorRollingUpPct:
		default:
			return fmt.Errorf("strategy %q: indicator %q has unknown type %q", s.Name, ind.ID, ind.Type)
		}
	}

	for _, c := range s.Conditions {
		switch c.Operator {
		case OpGreater, OpLess, OpEqual, OpCrossesAbove, OpCrossesBelow:
		default:
			return fmt.Errorf("strategy %q: condition %q has unknown operator %q", s.Name, c.ID, c.Operator)
		}
		if c.SourceB == "" && c.Value == nil {
			return fmt.Errorf("strategy %q: condition %q has neither sourceB nor value", s.Name, c.ID)
		}
		for _, src := range []string{c.SourceA, c.SourceB} {
			if src == "" || PriceField(src) {
				continue
			}
			id, _, ok := SplitIndicatorRef(src)
			if !ok {
				return fmt.Errorf("strategy %q: condition %q references malformed source %q", s.Name, c.ID, src)
			}
			if _, declared := s.indicatorByID(id); !declared {
				return fmt.Errorf("strategy %q: condition %q references undeclared indicator %q", s.Name, c.ID, id)
			}
		}
	}

	condIDs := make(map[string]bool, len(s.Conditions))
	for _, c := range s.Conditions {
		condIDs[c.ID] = true
	}
	for _, a := range s.Actions {
		if a.Kind != ActionOpen && a.Kind != ActionClose {
			return fmt.Errorf("strategy %q: action has unknown kind %q", s.Name, a.Kind)
		}
		if a.ConditionID != "" && !condIDs[a.ConditionID] {
			return fmt.Errorf("strategy %q: action references undeclared condition %q", s.Name, a.ConditionID)
		}
	}

	return nil
}

// SplitIndicatorRef parses "indicator_<id>" or "indicator_<id>.<line>"
// into the indicator id and the optional line name.
func SplitIndicatorRef(source string) (id, line string, ok bool) {
	const prefix = "indicator_"
	if !strings.HasPrefix(source, prefix) {
		return "", "", false
	}
	rest := source[len(prefix):]
	if rest == "" {
		return "", "", false
	}
	if dot := strings.LastIndex(rest, "."); dot >= 0 {
		id, line = rest[:dot], rest[dot+1:]
		if id == "" || line == "" {
			return "", "", false
		}
		return id, line, true
	}
	return rest, "", true
}

// ParseStrategyYAML decodes a strategy definition, fills defaults and
// expands any named presets into concrete indicators and conditions.
// The result is validated.
func ParseStrategyYAML(data []byte) (Strategy, error) {
	var s Strategy
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Strategy{}, fmt.Errorf("domain.ParseStrategyYAML: %w", err)
	}
	ApplyDefaults(&s)
	if err := ExpandPresets(&s); err != nil {
		return Strategy{}, err
	}
	if err := s.Validate(); err != nil {
		return Strategy{}, err
	}
	return s, nil
}

// ApplyDefaults fills the fields a hand-written definition usually omits.
func ApplyDefaults(s *Strategy) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.ConditionLogic == "" {
		s.ConditionLogic = LogicAll
	}
	if s.TradeOnEventsCount == 0 {
		s.TradeOnEventsCount = 1
	}
	if s.Timeframe == "" {
		s.Timeframe = "1m"
	}
	if s.Exit.Unfilled == "" {
		s.Exit.Unfilled = UnfilledKeepOpen
	}
	for i := range s.Conditions {
		if s.Conditions[i].Candle == "" {
			s.Conditions[i].Candle = CandleCurrent
		}
		if s.Conditions[i].ID == "" {
			s.Conditions[i].ID = fmt.Sprintf("c%d", i+1)
		}
	}
}
