// Package prompt holds the fixed instructions and output schema shared by every
// analysis backend.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"assetlens/asset"
)

const ocrPrompt = `You are an OCR engine. Transcribe ALL text visible in this screenshot faithfully,
including account names, institution names, balances, currencies, holdings tables and dates.
Keep the reading order and keep numbers exactly as shown (separators, signs, decimals).
Do NOT analyze, summarize, convert or comment. Output plain text only.`

// OCRPrompt returns the transcription-only instruction used by the split pipeline's first stage
func OCRPrompt() string {
	return ocrPrompt
}

// AnalysisPrompt returns the business instruction set for extracting and
// analysing assets from account screenshots.
func AnalysisPrompt() string {
	var sb strings.Builder

	sb.WriteString(`You are a professional personal-finance analyst. The input consists of screenshots
(or transcriptions of screenshots) of bank, brokerage and wealth-management account pages
belonging to ONE person. Build a consolidated view of their assets.

Tasks:
1. Extract every asset line item (account balance, deposit, stock, fund, wealth product,
   gold, crypto holding, etc.).
2. Deduplicate: the same account or holding may appear in several screenshots. Treat items
   with the same institution, name and amount as one item. Do not count a total row and its
   components twice.
3. Identify the issuing institution (bank, broker, platform) of each item as "entity".
4. Classify each item:
`)

	sb.WriteString("   - type: one of " + joinEnum(asset.AssetTypes) + "\n")
	sb.WriteString("   - macroCategory: one of " + joinEnum(asset.MacroCategories) + "\n")
	sb.WriteString(`     LIQUIDITY = cash and cash-like (demand deposits, money market funds)
     STABLE = low-risk fixed income (time deposits, bond funds, wealth products)
     INVESTMENT = diversified long-term holdings (index funds, gold)
     RISK = volatile holdings (individual stocks, crypto, leveraged products)
`)

	sb.WriteString(fmt.Sprintf(`5. Convert every amount into %s using EXACTLY these reference rates
   (1 unit of currency = N %s):
`, asset.ReportingCurrency, asset.ReportingCurrency))
	sb.WriteString(rateTable())
	sb.WriteString(fmt.Sprintf(`   For a currency not listed, use your best current estimate and say so in "description".
   Report "currency" as the ISO 4217 code; "¥" and "$" alone are ambiguous (CNY or JPY, USD or HKD/SGD/AUD),
   so resolve them from the institution and context.
   totalNetWorthCNY MUST equal the sum of all convertedAmountCNY values.
6. Compute the risk metrics as fractions between 0 and 1:
   - stockConcentration = value of the top 5 stock holdings / total stock value (0 if no stocks)
   - entityConcentration = holdings at the largest single institution / total portfolio value
   - cashRatio = cash-like holdings / total portfolio value
   - riskAlerts = short warnings (concentration, excessive cash, high-risk exposure)
7. Write the narrative fields in the language used by the screenshots:
   - summary: one or two sentences on total net worth and structure
   - distributionAnalysis: how the assets are spread across types, categories and institutions
   - investmentAdvice: concrete, balanced suggestions with risk caveats

Output a single JSON object only, no markdown and no commentary. Amounts are numbers in %s.
`, asset.ReportingCurrency))

	return sb.String()
}

// AnalysisPromptWithSchema appends the machine-readable schema to the analysis prompt,
// for backends that cannot enforce a response schema themselves.
func AnalysisPromptWithSchema() string {
	schema, err := SchemaJSON()
	if err != nil {
		return AnalysisPrompt()
	}
	return AnalysisPrompt() + "\nThe JSON object must conform to this schema:\n" + schema + "\n"
}

func rateTable() string {
	codes := make([]string, 0, len(asset.ReferenceRates))
	for code := range asset.ReferenceRates {
		if code == asset.ReportingCurrency {
			continue
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var sb strings.Builder
	for _, code := range codes {
		sb.WriteString(fmt.Sprintf("   - %s: %s\n", code, asset.ReferenceRates[code].String()))
	}
	return sb.String()
}

func joinEnum[T ~string](values []T) string {
	return strings.Join(enumStrings(values), " | ")
}
