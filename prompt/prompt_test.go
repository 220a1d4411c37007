package prompt

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/genai"

	"assetlens/asset"
)

func TestAnalysisPrompt_ListsEnumsAndRates(t *testing.T) {
	p := AnalysisPrompt()

	for _, typ := range asset.AssetTypes {
		if !strings.Contains(p, string(typ)) {
			t.Errorf("prompt missing asset type %s", typ)
		}
	}
	for _, c := range asset.MacroCategories {
		if !strings.Contains(p, string(c)) {
			t.Errorf("prompt missing macro category %s", c)
		}
	}
	for _, line := range []string{"- USD: 7.2", "- HKD: 0.92", "- JPY: 0.048"} {
		if !strings.Contains(p, line) {
			t.Errorf("prompt missing rate line %q", line)
		}
	}
	if !strings.Contains(p, "ISO 4217") {
		t.Error("prompt should ask for ISO currency codes")
	}
	if strings.Contains(p, "- CNY:") {
		t.Error("reporting currency should not be listed as a conversion")
	}
}

func TestOCRPrompt(t *testing.T) {
	p := OCRPrompt()
	if !strings.Contains(p, "Do NOT analyze") {
		t.Errorf("OCR prompt should forbid analysis: %q", p)
	}
}

func TestAnalysisPromptWithSchema(t *testing.T) {
	p := AnalysisPromptWithSchema()
	if !strings.HasPrefix(p, AnalysisPrompt()) {
		t.Error("schema prompt should extend the analysis prompt")
	}
	if !strings.Contains(p, `"convertedAmountCNY"`) {
		t.Error("schema prompt should embed the schema JSON")
	}
}

// Every property the schema asks for must exist on the Go result type.
func TestAnalysisSchema_MatchesResultType(t *testing.T) {
	schema := AnalysisSchema()

	assertFields(t, "AnalysisResult", schema, reflect.TypeOf(asset.AnalysisResult{}))
	assertFields(t, "RiskMetrics", schema.Properties["riskMetrics"], reflect.TypeOf(asset.RiskMetrics{}))
	assertFields(t, "AssetItem", schema.Properties["breakdown"].Items, reflect.TypeOf(asset.AssetItem{}))
}

func assertFields(t *testing.T, name string, schema *genai.Schema, typ reflect.Type) {
	t.Helper()

	tags := make(map[string]bool)
	for i := 0; i < typ.NumField(); i++ {
		tag := strings.Split(typ.Field(i).Tag.Get("json"), ",")[0]
		tags[tag] = true
	}

	for prop := range schema.Properties {
		if !tags[prop] {
			t.Errorf("%s: schema property %q has no matching json field", name, prop)
		}
	}
	for _, req := range schema.Required {
		if _, ok := schema.Properties[req]; !ok {
			t.Errorf("%s: required field %q is not a declared property", name, req)
		}
	}
}

func TestAnalysisSchema_Enums(t *testing.T) {
	item := AnalysisSchema().Properties["breakdown"].Items

	if got := item.Properties["type"].Enum; len(got) != len(asset.AssetTypes) {
		t.Errorf("type enum = %v", got)
	}
	if got := item.Properties["macroCategory"].Enum; len(got) != len(asset.MacroCategories) {
		t.Errorf("macroCategory enum = %v", got)
	}

	cash := AnalysisSchema().Properties["riskMetrics"].Properties["cashRatio"]
	if cash.Minimum == nil || *cash.Minimum != 0 || cash.Maximum == nil || *cash.Maximum != 1 {
		t.Errorf("cashRatio bounds = %v..%v, want 0..1", cash.Minimum, cash.Maximum)
	}
}

func TestSchemaJSON(t *testing.T) {
	s, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		t.Fatalf("SchemaJSON() is not valid JSON: %v", err)
	}
	if _, ok := decoded["properties"]; !ok {
		t.Error("SchemaJSON() missing properties")
	}
}
