package polymarket

// Raw DTOs of the Polymarket APIs. Only used inside this package;
// conversion to domain entities lives in mapping.go.

// --- Gamma API ---

// gammaMarketsResponse is the response of GET /markets.
type gammaMarketsResponse []gammaMarket

// gammaMarket is one market row from Gamma. Array-valued fields
// (outcomes, outcomePrices, clobTokenIds) arrive as JSON-encoded
// strings, not arrays.
type gammaMarket struct {
	ConditionID   string `json:"conditionId"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	StartDateISO  string `json:"startDate"`
	EndDateISO    string `json:"endDateIso"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIDs  string `json:"clobTokenIds"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
}

// --- CLOB API ---

// priceHistoryResponse is the response of GET /prices-history.
type priceHistoryResponse struct {
	History []pricePoint `json:"history"`
}

// pricePoint is one sampled trade price of a token.
type pricePoint struct {
	Timestamp int64   `json:"t"` // unix seconds
	Price     float64 `json:"p"`
}
