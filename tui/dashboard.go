package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"assetlens/analysis"
	"assetlens/asset"
)

const (
	defaultWidth = 100
	barWidth     = 30

	// Risk thresholds for highlighting ratios
	concentrationWarn = 0.5
	cashLow           = 0.05
	cashHigh          = 0.6
)

// RenderDashboard renders the full result view: totals, breakdown table,
// distributions, risk metrics and the model's narrative.
func RenderDashboard(r *asset.AnalysisResult, width int) string {
	if r == nil {
		return MutedStyle.Render("No result.")
	}
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder

	b.WriteString(renderTotal(r))
	b.WriteString("\n\n")
	b.WriteString(RenderBreakdown(r))
	b.WriteString("\n\n")

	byType := RenderDistribution("By asset type", r.DistributionByType(), nil)
	byMacro := RenderDistribution("By category", r.DistributionByMacro(), macroColors)
	if width >= 2*(barWidth+30) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, byType, "    ", byMacro))
	} else {
		b.WriteString(byType + "\n\n" + byMacro)
	}
	b.WriteString("\n\n")
	b.WriteString(RenderDistribution("By institution", r.DistributionByEntity(), nil))
	b.WriteString("\n\n")

	b.WriteString(RenderRisk(r.RiskMetrics))
	b.WriteString("\n")

	cardWidth := width - 4
	if r.Summary != "" {
		b.WriteString(Card("Summary", r.Summary, cardWidth) + "\n")
	}
	if r.DistributionAnalysis != "" {
		b.WriteString(Card("Distribution", r.DistributionAnalysis, cardWidth) + "\n")
	}
	if r.InvestmentAdvice != "" {
		b.WriteString(Card("Advice", r.InvestmentAdvice, cardWidth) + "\n")
	}

	return b.String()
}

func renderTotal(r *asset.AnalysisResult) string {
	label := MutedStyle.Render("Total net worth")
	amount := lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Render(FormatCNY(r.TotalNetWorthCNY))

	meta := fmt.Sprintf("%d positions", len(r.Breakdown))
	if r.Timestamp > 0 {
		meta += "  ·  " + time.UnixMilli(r.Timestamp).Format("2006-01-02 15:04")
	}
	return label + "  " + amount + "\n" + MutedStyle.Render(meta)
}

// RenderBreakdown renders the positions as a table in extraction order
func RenderBreakdown(r *asset.AnalysisResult) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
	numStyle := cellStyle.Align(lipgloss.Right)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers("Name", "Entity", "Type", "Category", "Original", "CNY").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 4:
				return numStyle
			}
			return cellStyle
		})

	for _, item := range r.Breakdown {
		t.Row(
			item.Name,
			item.Entity,
			string(item.Type),
			string(item.MacroCategory),
			formatAmount(item.OriginalAmount)+" "+item.Currency,
			formatAmount(item.ConvertedAmountCNY),
		)
	}

	return t.Render()
}

// RenderDistribution renders one bar per share. colors may be nil.
func RenderDistribution(title string, shares []asset.Share, colors map[string]lipgloss.AdaptiveColor) string {
	var b strings.Builder
	b.WriteString(SubtitleStyle.Bold(true).Render(title))
	b.WriteString("\n")

	if len(shares) == 0 {
		b.WriteString(MutedStyle.Render("  (none)"))
		return b.String()
	}

	labelWidth := 0
	for _, s := range shares {
		labelWidth = max(labelWidth, lipgloss.Width(s.Label))
	}
	labelWidth = min(labelWidth, 18)

	for i, s := range shares {
		color, ok := colors[s.Label]
		if !ok {
			color = ColorPrimary
		}
		label := lipgloss.NewStyle().Width(labelWidth).MaxWidth(labelWidth).Render(s.Label)
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  " + label + " " + ProgressBar(s.Fraction, barWidth, color))
	}
	return b.String()
}

// RenderRisk renders the three ratios with threshold highlighting and the alert list
func RenderRisk(m asset.RiskMetrics) string {
	var b strings.Builder
	b.WriteString(SubtitleStyle.Bold(true).Render("Risk"))
	b.WriteString("\n")

	rows := []struct {
		label string
		value float64
		warn  bool
	}{
		{"Stock concentration (top 5)", m.StockConcentration, m.StockConcentration > concentrationWarn},
		{"Largest institution", m.EntityConcentration, m.EntityConcentration > concentrationWarn},
		{"Cash ratio", m.CashRatio, m.CashRatio < cashLow || m.CashRatio > cashHigh},
	}
	for _, row := range rows {
		style := BodyStyle
		if row.warn {
			style = WarningStyle
		}
		label := lipgloss.NewStyle().Width(30).Render(row.label)
		b.WriteString("  " + label + style.Render(fmt.Sprintf("%5.1f%%", row.value*100)) + "\n")
	}

	if len(m.RiskAlerts) > 0 {
		b.WriteString("\n")
		for _, alert := range m.RiskAlerts {
			b.WriteString("  " + BadgeWarningStyle.Render("!") + " " + WarningStyle.Render(alert) + "\n")
		}
	}
	return b.String()
}

// RenderHistory renders saved analyses newest first, one per line
func RenderHistory(results []asset.AnalysisResult) string {
	if len(results) == 0 {
		return MutedStyle.Render("No saved analyses.")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers("ID", "Date", "Positions", "Total (CNY)").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(ColorPrimary)
			}
			if col >= 2 {
				return s.Align(lipgloss.Right)
			}
			return s
		})

	for _, r := range results {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		date := "-"
		if r.Timestamp > 0 {
			date = time.UnixMilli(r.Timestamp).Format("2006-01-02 15:04")
		}
		t.Row(id, date, fmt.Sprintf("%d", len(r.Breakdown)), formatAmount(r.TotalNetWorthCNY))
	}
	return t.Render()
}

// RenderError renders a classified analysis error
func RenderError(err error, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	title := "Analysis failed"
	var aErr *analysis.Error
	if errors.As(err, &aErr) {
		title = errorTitle(aErr)
	}
	return StatusCard("x", title, err.Error(), StepError, width-4)
}

func errorTitle(e *analysis.Error) string {
	switch e.Kind {
	case analysis.KindMissingCredential:
		return "Missing API key"
	case analysis.KindInvalidConfiguration:
		return "Incomplete configuration"
	case analysis.KindProviderHTTP:
		if e.StatusCode > 0 {
			return fmt.Sprintf("Provider error (HTTP %d)", e.StatusCode)
		}
		return "Provider error"
	case analysis.KindNetwork:
		return "Network error"
	case analysis.KindEmptyResponse:
		return "Empty response"
	case analysis.KindMalformedOutput:
		return "Unreadable model output"
	case analysis.KindReadError:
		return "Image could not be read"
	}
	return "Analysis failed"
}

// FormatCNY formats an amount in the reporting currency
func FormatCNY(d decimal.Decimal) string {
	return "¥" + formatAmount(d)
}

// formatAmount renders d with two decimals and thousands separators
func formatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
