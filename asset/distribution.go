package asset

import "github.com/shopspring/decimal"

// Share is one slice of a distribution
type Share struct {
	Label  string
	Amount decimal.Decimal
	// Fraction of the breakdown total, 0 when the total is zero
	Fraction float64
}

// DistributionByType groups the breakdown by AssetType in AssetTypes order,
// omitting empty groups.
func (r *AnalysisResult) DistributionByType() []Share {
	labels := make([]string, len(AssetTypes))
	for i, t := range AssetTypes {
		labels[i] = string(t)
	}
	return r.distribution(labels, func(item AssetItem) string { return string(item.Type) })
}

// DistributionByMacro groups the breakdown by MacroCategory in MacroCategories order
func (r *AnalysisResult) DistributionByMacro() []Share {
	labels := make([]string, len(MacroCategories))
	for i, c := range MacroCategories {
		labels[i] = string(c)
	}
	return r.distribution(labels, func(item AssetItem) string { return string(item.MacroCategory) })
}

// DistributionByEntity groups the breakdown by institution, in first-seen order
func (r *AnalysisResult) DistributionByEntity() []Share {
	var labels []string
	seen := make(map[string]bool)
	for _, item := range r.Breakdown {
		name := entityLabel(item)
		if !seen[name] {
			seen[name] = true
			labels = append(labels, name)
		}
	}
	return r.distribution(labels, entityLabel)
}

func entityLabel(item AssetItem) string {
	if item.Entity == "" {
		return "Unknown"
	}
	return item.Entity
}

func (r *AnalysisResult) distribution(labels []string, key func(AssetItem) string) []Share {
	sums := make(map[string]decimal.Decimal, len(labels))
	for _, item := range r.Breakdown {
		k := key(item)
		sums[k] = sums[k].Add(item.ConvertedAmountCNY)
	}

	total := r.BreakdownTotal()
	shares := make([]Share, 0, len(labels))
	for _, label := range labels {
		amount, ok := sums[label]
		if !ok {
			continue
		}
		share := Share{Label: label, Amount: amount}
		if !total.IsZero() {
			share.Fraction = amount.Div(total).InexactFloat64()
		}
		shares = append(shares, share)
	}
	return shares
}
