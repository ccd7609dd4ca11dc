package domain

// presets.go — named strategy presets.
//
// A preset is a construction-time macro: it expands into concrete
// indicators and conditions when the strategy is parsed. The evaluator
// never branches on a preset name at runtime; the Preset tag left on the
// generated indicators is purely informational.

import "fmt"

func f(v float64) *float64 { return &v }

// ExpandPresets appends the indicators and conditions each named preset
// stands for. Expansion is idempotent per name only in the sense that a
// preset appears once in Strategy.Presets; duplicate indicator ids are
// caught by Validate afterwards.
func ExpandPresets(s *Strategy) error {
	for _, name := range s.Presets {
		exp, ok := presetTable[name]
		if !ok {
			return fmt.Errorf("domain.ExpandPresets: unknown preset %q", name)
		}
		exp(s, name)
	}
	return nil
}

// presetTable maps preset names to their expansion. Each expansion tags
// what it adds with the preset name so the editing UI can group it.
var presetTable = map[string]func(*Strategy, string){
	"MACD Bullish Crossover": func(s *Strategy, name string) {
		s.Indicators = append(s.Indicators, Indicator{
			ID:     "macd_preset",
			Type:   IndicatorMACD,
			Parameters: map[string]float64{"fast": 12, "slow": 26, "signal": 9},
			Preset: name,
		})
		s.Conditions = append(s.Conditions, Condition{
			ID:       "macd_bullish_cross",
			SourceA:  "indicator_macd_preset.macd",
			Operator: OpCrossesAbove,
			SourceB:  "indicator_macd_preset.signal",
			Candle:   CandleCurrent,
		})
	},
	"RSI Oversold Bounce": func(s *Strategy, name string) {
		s.Indicators = append(s.Indicators, Indicator{
			ID:     "rsi_preset",
			Type:   IndicatorRSI,
			Parameters: map[string]float64{"period": 14},
			Preset: name,
		})
		s.Conditions = append(s.Conditions, Condition{
			ID:       "rsi_oversold_bounce",
			SourceA:  "indicator_rsi_preset",
			Operator: OpCrossesAbove,
			Value:    f(30),
			Candle:   CandleCurrent,
		})
	},
	"Price Above SMA": func(s *Strategy, name string) {
		s.Indicators = append(s.Indicators, Indicator{
			ID:     "sma_preset",
			Type:   IndicatorSMA,
			Parameters: map[string]float64{"period": 20},
			Preset: name,
		})
		s.Conditions = append(s.Conditions, Condition{
			ID:       "price_above_sma",
			SourceA:  "close",
			Operator: OpGreater,
			SourceB:  "indicator_sma_preset",
			Candle:   CandleCurrent,
		})
	},
	"Bollinger Breakout": func(s *Strategy, name string) {
		s.Indicators = append(s.Indicators, Indicator{
			ID:     "bb_preset",
			Type:   IndicatorBollingerBands,
			Parameters: map[string]float64{"period": 20, "stddev": 2},
			Preset: name,
		})
		s.Conditions = append(s.Conditions, Condition{
			ID:       "bb_breakout",
			SourceA:  "close",
			Operator: OpCrossesAbove,
			SourceB:  "indicator_bb_preset.upper",
			Candle:   CandleCurrent,
		})
	},
	"Stochastic Bullish Cross": func(s *Strategy, name string) {
		s.Indicators = append(s.Indicators, Indicator{
			ID:     "stoch_preset",
			Type:   IndicatorStochastic,
			Parameters: map[string]float64{"k_period": 14, "d_period": 3},
			Preset: name,
		})
		s.Conditions = append(s.Conditions, Condition{
			ID:       "stoch_bullish_cross",
			SourceA:  "indicator_stoch_preset.k",
			Operator: OpCrossesAbove,
			SourceB:  "indicator_stoch_preset.d",
			Candle:   CandleCurrent,
		})
	},
}

// PresetNames lists the available presets, for the CLI and editing UI.
func PresetNames() []string {
	names := make([]string, 0, len(presetTable))
	for name := range presetTable {
		names = append(names, name)
	}
	return names
}
