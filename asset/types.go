// Package asset defines the analysis result shared between the analysis core and
// its consumers (dashboard, history, export).
package asset

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AssetType is the fine-grained classification of a position
type AssetType string

const (
	TypeCash   AssetType = "CASH"
	TypeStock  AssetType = "STOCK"
	TypeFund   AssetType = "FUND"
	TypeGold   AssetType = "GOLD"
	TypeCrypto AssetType = "CRYPTO"
	TypeOther  AssetType = "OTHER"
)

// AssetTypes lists every valid AssetType in display order
var AssetTypes = []AssetType{TypeCash, TypeStock, TypeFund, TypeGold, TypeCrypto, TypeOther}

// Valid reports whether t is one of the closed set of asset types
func (t AssetType) Valid() bool {
	for _, v := range AssetTypes {
		if t == v {
			return true
		}
	}
	return false
}

// MacroCategory is the coarse liquidity/risk bucket of a position
type MacroCategory string

const (
	MacroLiquidity  MacroCategory = "LIQUIDITY"
	MacroInvestment MacroCategory = "INVESTMENT"
	MacroRisk       MacroCategory = "RISK"
	MacroStable     MacroCategory = "STABLE"
)

// MacroCategories lists every valid MacroCategory in display order
var MacroCategories = []MacroCategory{MacroLiquidity, MacroInvestment, MacroRisk, MacroStable}

// Valid reports whether c is one of the closed set of macro categories
func (c MacroCategory) Valid() bool {
	for _, v := range MacroCategories {
		if c == v {
			return true
		}
	}
	return false
}

// ReportingCurrency is the single currency every position is converted into
const ReportingCurrency = "CNY"

// ReferenceRates is the fixed conversion table (units of CNY per unit of currency)
// given to the model and used to check its conversions.
var ReferenceRates = map[string]decimal.Decimal{
	"CNY": decimal.NewFromInt(1),
	"USD": decimal.RequireFromString("7.2"),
	"HKD": decimal.RequireFromString("0.92"),
	"JPY": decimal.RequireFromString("0.048"),
	"EUR": decimal.RequireFromString("7.8"),
	"GBP": decimal.RequireFromString("9.1"),
	"SGD": decimal.RequireFromString("5.3"),
	"AUD": decimal.RequireFromString("4.7"),
}

// currencyAliases maps unambiguous symbols and local spellings to ISO codes.
// Bare "¥" and "$" are shared by several currencies and are left unresolved.
var currencyAliases = map[string]string{
	"RMB": "CNY",
	"元":   "CNY",
	"US$": "USD",
	"HK$": "HKD",
	"€":   "EUR",
	"£":   "GBP",
	"S$":  "SGD",
	"A$":  "AUD",
}

// RateFor returns the reference conversion factor for a currency code or symbol
func RateFor(currency string) (decimal.Decimal, bool) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if alias, ok := currencyAliases[code]; ok {
		code = alias
	}
	rate, ok := ReferenceRates[code]
	return rate, ok
}

// AssetItem is one recognized financial position
type AssetItem struct {
	// Name is the display label of the position
	Name string `json:"name"`

	// Entity is the issuing institution or broker
	Entity string `json:"entity,omitempty"`

	// OriginalAmount is the amount in the source currency
	OriginalAmount decimal.Decimal `json:"originalAmount"`

	// Currency is the code or symbol as extracted
	Currency string `json:"currency"`

	// ConvertedAmountCNY is OriginalAmount converted into the reporting currency
	ConvertedAmountCNY decimal.Decimal `json:"convertedAmountCNY"`

	Type          AssetType     `json:"type"`
	MacroCategory MacroCategory `json:"macroCategory"`

	Description string `json:"description,omitempty"`
}

// RiskMetrics is the aggregate risk summary. Ratios are fractions in [0,1].
type RiskMetrics struct {
	// StockConcentration is top-5 stock holdings over total stock value
	StockConcentration float64 `json:"stockConcentration"`

	// EntityConcentration is the largest single institution over the portfolio total
	EntityConcentration float64 `json:"entityConcentration"`

	// CashRatio is cash-like holdings over the portfolio total
	CashRatio float64 `json:"cashRatio"`

	RiskAlerts []string `json:"riskAlerts"`
}

// AnalysisResult is the complete output of one analysis invocation.
// It is never mutated after being returned.
type AnalysisResult struct {
	ID string `json:"id"`

	// Timestamp is the creation instant in milliseconds since epoch
	Timestamp int64 `json:"timestamp"`

	TotalNetWorthCNY     decimal.Decimal `json:"totalNetWorthCNY"`
	Summary              string          `json:"summary"`
	DistributionAnalysis string          `json:"distributionAnalysis"`
	InvestmentAdvice     string          `json:"investmentAdvice"`
	RiskMetrics          RiskMetrics     `json:"riskMetrics"`

	// Breakdown keeps extraction order
	Breakdown []AssetItem `json:"breakdown"`
}

// BreakdownTotal sums ConvertedAmountCNY over the breakdown
func (r *AnalysisResult) BreakdownTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Breakdown {
		total = total.Add(item.ConvertedAmountCNY)
	}
	return total
}
