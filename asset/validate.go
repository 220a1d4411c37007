package asset

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// TotalTolerance is the allowed gap between TotalNetWorthCNY and the breakdown sum
	TotalTolerance = decimal.RequireFromString("0.01")

	// conversionSlack is the relative tolerance applied to reference-rate conversions
	conversionSlack = decimal.RequireFromString("0.01")
)

// ValidationError lists every contract violation found in a parsed result
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "result failed validation: " + strings.Join(e.Problems, "; ")
}

// Canonicalize upper-cases and trims enum fields in place so that "stock " and
// "STOCK" compare equal. It does not fix values outside the enums.
func Canonicalize(r *AnalysisResult) {
	for i := range r.Breakdown {
		item := &r.Breakdown[i]
		item.Type = AssetType(strings.ToUpper(strings.TrimSpace(string(item.Type))))
		item.MacroCategory = MacroCategory(strings.ToUpper(strings.TrimSpace(string(item.MacroCategory))))
		item.Currency = strings.TrimSpace(item.Currency)
	}
}

// Validate checks enum membership, ratio bounds, total consistency and
// reference-rate conversions. Out-of-range ratios are rejected, never clamped.
func Validate(r *AnalysisResult) error {
	if r == nil {
		return &ValidationError{Problems: []string{"result is empty"}}
	}

	var problems []string

	for i, item := range r.Breakdown {
		label := fmt.Sprintf("breakdown[%d] %q", i, item.Name)
		if !item.Type.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", label, item.Type))
		}
		if !item.MacroCategory.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown macroCategory %q", label, item.MacroCategory))
		}
		if msg := checkConversion(item); msg != "" {
			problems = append(problems, label+": "+msg)
		}
	}

	ratios := []struct {
		name  string
		value float64
	}{
		{"stockConcentration", r.RiskMetrics.StockConcentration},
		{"entityConcentration", r.RiskMetrics.EntityConcentration},
		{"cashRatio", r.RiskMetrics.CashRatio},
	}
	for _, ratio := range ratios {
		if ratio.value < 0 || ratio.value > 1 || ratio.value != ratio.value {
			problems = append(problems, fmt.Sprintf("riskMetrics.%s = %v is outside [0,1]", ratio.name, ratio.value))
		}
	}

	sum := r.BreakdownTotal()
	if r.TotalNetWorthCNY.Sub(sum).Abs().GreaterThan(TotalTolerance) {
		problems = append(problems, fmt.Sprintf("totalNetWorthCNY %s does not match breakdown sum %s",
			r.TotalNetWorthCNY.String(), sum.String()))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// checkConversion verifies ConvertedAmountCNY against the reference table.
// Currencies missing from the table are accepted as-is.
func checkConversion(item AssetItem) string {
	rate, ok := RateFor(item.Currency)
	if !ok {
		return ""
	}
	expected := item.OriginalAmount.Mul(rate)
	allowed := expected.Abs().Mul(conversionSlack).Add(TotalTolerance)
	if item.ConvertedAmountCNY.Sub(expected).Abs().GreaterThan(allowed) {
		return fmt.Sprintf("convertedAmountCNY %s is not %s %s at rate %s",
			item.ConvertedAmountCNY.String(), item.OriginalAmount.String(), item.Currency, rate.String())
	}
	return ""
}
