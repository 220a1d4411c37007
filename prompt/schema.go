package prompt

import (
	"encoding/json"

	"google.golang.org/genai"

	"assetlens/asset"
)

// AnalysisSchema describes every required field of asset.AnalysisResult with its
// type and enum constraints. id and timestamp are filled client-side and are not
// requested from the model.
func AnalysisSchema() *genai.Schema {
	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":               {Type: genai.TypeString, Description: "Display label of the position"},
			"entity":             {Type: genai.TypeString, Description: "Issuing institution or broker"},
			"originalAmount":     {Type: genai.TypeNumber, Description: "Amount in the source currency"},
			"currency":           {Type: genai.TypeString, Description: "ISO 4217 currency code (e.g. CNY, JPY, HKD); the symbol as shown only when the code cannot be determined"},
			"convertedAmountCNY": {Type: genai.TypeNumber, Description: "Amount converted into " + asset.ReportingCurrency},
			"type":               {Type: genai.TypeString, Enum: enumStrings(asset.AssetTypes)},
			"macroCategory":      {Type: genai.TypeString, Enum: enumStrings(asset.MacroCategories)},
			"description":        {Type: genai.TypeString},
		},
		Required: []string{"name", "entity", "originalAmount", "currency", "convertedAmountCNY", "type", "macroCategory"},
		PropertyOrdering: []string{
			"name", "entity", "originalAmount", "currency", "convertedAmountCNY", "type", "macroCategory", "description",
		},
	}

	ratio := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeNumber,
			Description: desc,
			Minimum:     genai.Ptr(0.0),
			Maximum:     genai.Ptr(1.0),
		}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"totalNetWorthCNY":     {Type: genai.TypeNumber, Description: "Sum of all convertedAmountCNY"},
			"summary":              {Type: genai.TypeString},
			"distributionAnalysis": {Type: genai.TypeString},
			"investmentAdvice":     {Type: genai.TypeString},
			"riskMetrics": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"stockConcentration":  ratio("Top-5 stock holdings / total stock value"),
					"entityConcentration": ratio("Largest single institution / total portfolio value"),
					"cashRatio":           ratio("Cash-like holdings / total portfolio value"),
					"riskAlerts":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"stockConcentration", "entityConcentration", "cashRatio", "riskAlerts"},
			},
			"breakdown": {Type: genai.TypeArray, Items: item},
		},
		Required: []string{
			"totalNetWorthCNY", "summary", "distributionAnalysis", "investmentAdvice", "riskMetrics", "breakdown",
		},
		PropertyOrdering: []string{
			"totalNetWorthCNY", "summary", "distributionAnalysis", "investmentAdvice", "riskMetrics", "breakdown",
		},
	}
}

// SchemaJSON renders AnalysisSchema as indented JSON
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(AnalysisSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
