package rules

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/schema"
)

func newTestValidator() *Validator {
	return New(schema.Default())
}

func validRow() *model.Record {
	return model.RecordOf(
		"inv_id", "INV-1",
		"date", "2025-01-15",
		"currency", "AED",
		"total_excl_vat", 100,
		"vat_amount", 5,
		"total_incl_vat", 105,
		"seller_trn", "100",
		"buyer_trn", "200",
		"lines", []*model.Record{
			model.RecordOf("qty", 2, "unit_price", 25, "line_total", 50),
			model.RecordOf("qty", 1, "unit_price", 50, "line_total", 50),
		},
	)
}

func findingFor(t *testing.T, findings []model.RuleFinding, id model.RuleID) model.RuleFinding {
	t.Helper()
	for _, f := range findings {
		if f.Rule == id {
			return f
		}
	}
	t.Fatalf("no finding for %s", id)
	return model.RuleFinding{}
}

func TestValidate_EmptyInputPassesVacuously(t *testing.T) {
	findings, gaps := newTestValidator().Validate(nil)

	require.Len(t, findings, 5)
	for _, f := range findings {
		assert.True(t, f.OK, f.Rule)
	}
	assert.Equal(t, []string{}, gaps)
}

func TestValidate_FixedOrder(t *testing.T) {
	findings, _ := newTestValidator().Validate(model.RecordSet{validRow()})

	var ids []model.RuleID
	for _, f := range findings {
		ids = append(ids, f.Rule)
	}
	assert.Equal(t, []model.RuleID{
		model.RuleTotalsBalance,
		model.RuleLineMath,
		model.RuleDateISO,
		model.RuleCurrencyAllowed,
		model.RuleTRNPresent,
	}, ids)
}

func TestValidate_CleanRow(t *testing.T) {
	findings, gaps := newTestValidator().Validate(model.RecordSet{validRow()})

	for _, f := range findings {
		assert.Equal(t, model.RuleFinding{Rule: f.Rule, OK: true}, f)
	}
	assert.Empty(t, gaps)
}

func TestTotalsBalance(t *testing.T) {
	recs := model.RecordSet{
		model.RecordOf("total_excl_vat", 100, "vat_amount", 5, "total_incl_vat", 105),
		model.RecordOf("totalNet", "200", "vat", 10, "grandTotal", 215.5),
		model.RecordOf("total_excl_vat", 1, "vat_amount", 1, "total_incl_vat", 5),
	}

	findings, gaps := newTestValidator().Validate(recs)

	f := findingFor(t, findings, model.RuleTotalsBalance)
	assert.False(t, f.OK)
	assert.Equal(t, "Row 2: expected 210.00, got 215.50", f.Details)
	assert.Contains(t, gaps, GapTotalsBalance)
}

func TestTotalsBalance_WithinTolerance(t *testing.T) {
	recs := model.RecordSet{
		model.RecordOf("total_excl_vat", 100, "vat_amount", 5, "total_incl_vat", 105.005),
	}

	findings, _ := newTestValidator().Validate(recs)
	assert.True(t, findingFor(t, findings, model.RuleTotalsBalance).OK)
}

func TestTotalsBalance_PartialEvidenceIsSkipped(t *testing.T) {
	recs := model.RecordSet{
		model.RecordOf("total_excl_vat", 100, "total_incl_vat", 999),
		model.RecordOf("total_excl_vat", "n/a", "vat_amount", 5, "total_incl_vat", 999),
	}

	findings, _ := newTestValidator().Validate(recs)
	assert.True(t, findingFor(t, findings, model.RuleTotalsBalance).OK)
}

func TestTotalsBalance_NonFiniteEvidenceIsSkipped(t *testing.T) {
	var recs model.RecordSet
	require.NoError(t, json.Unmarshal([]byte(`[
		{"total_excl_vat": 1e400, "vat_amount": 5, "total_incl_vat": 105},
		{"total_excl_vat": 100, "vat_amount": 5, "total_incl_vat": "Infinity"}
	]`), &recs))

	findings, gaps := newTestValidator().Validate(recs)
	assert.True(t, findingFor(t, findings, model.RuleTotalsBalance).OK)
	assert.NotContains(t, gaps, GapTotalsBalance)
}

func TestLineMath_NonFiniteEvidenceIsSkipped(t *testing.T) {
	recs := model.RecordSet{
		model.RecordOf("qty", 1, "unit_price", 1, "line_total", "Infinity"),
		model.RecordOf("qty", 1e200, "unit_price", 1e200, "line_total", 1),
		model.RecordOf("qty", 2, "unit_price", 3, "line_total", 7),
	}

	findings, _ := newTestValidator().Validate(recs)

	f := findingFor(t, findings, model.RuleLineMath)
	assert.False(t, f.OK)
	require.NotNil(t, f.ExampleLine)
	assert.Equal(t, 3, *f.ExampleLine)
	assert.Equal(t, 6.0, *f.Expected)
	assert.Equal(t, 7.0, *f.Got)

	_, err := json.Marshal(findings)
	assert.NoError(t, err)
}

func TestLineMath_RowIsItsOwnLine(t *testing.T) {
	recs := model.RecordSet{model.RecordOf("qty", 5, "unit_price", 100, "line_total", 400)}

	findings, gaps := newTestValidator().Validate(recs)

	f := findingFor(t, findings, model.RuleLineMath)
	assert.False(t, f.OK)
	require.NotNil(t, f.ExampleLine)
	require.NotNil(t, f.Expected)
	require.NotNil(t, f.Got)
	assert.Equal(t, 1, *f.ExampleLine)
	assert.Equal(t, 500.0, *f.Expected)
	assert.Equal(t, 400.0, *f.Got)
	assert.Contains(t, gaps, GapLineMath)
}

func TestLineMath_ReportsRowOfFirstBadLine(t *testing.T) {
	good := validRow()
	bad := model.RecordOf("lines", []*model.Record{
		model.RecordOf("qty", 1, "unit_price", 10, "line_total", 10),
		model.RecordOf("quantity", 3, "price", "3.333", "amount", 9.99),
		model.RecordOf("qty", 1, "unit_price", 1, "line_total", 7),
	})
	later := model.RecordOf("qty", 1, "unit_price", 1, "line_total", 100)

	findings, _ := newTestValidator().Validate(model.RecordSet{good, bad, later})

	f := findingFor(t, findings, model.RuleLineMath)
	assert.False(t, f.OK)
	assert.Equal(t, 2, *f.ExampleLine)
	assert.Equal(t, 1.0, *f.Expected)
	assert.Equal(t, 7.0, *f.Got)
}

func TestLineMath_EmptyLinesArrayHasNoLines(t *testing.T) {
	recs := model.RecordSet{model.RecordOf(
		"qty", 5, "unit_price", 100, "line_total", 400,
		"lines", []any{},
	)}

	findings, _ := newTestValidator().Validate(recs)
	assert.True(t, findingFor(t, findings, model.RuleLineMath).OK)
}

func TestLineMath_RoundsEvidence(t *testing.T) {
	recs := model.RecordSet{model.RecordOf("qty", 3, "unit_price", 3.333, "line_total", 10.004)}

	findings, _ := newTestValidator().Validate(recs)

	f := findingFor(t, findings, model.RuleLineMath)
	assert.True(t, f.OK, "difference 0.005 is within tolerance")

	recs = model.RecordSet{model.RecordOf("qty", 3, "unit_price", 3.333, "line_total", 12.126)}
	findings, _ = newTestValidator().Validate(recs)
	f = findingFor(t, findings, model.RuleLineMath)
	assert.False(t, f.OK)
	assert.Equal(t, 10.0, *f.Expected)
	assert.Equal(t, 12.13, *f.Got)
}

func TestDateISO(t *testing.T) {
	tests := []struct {
		date   any
		wantOK bool
	}{
		{"2025-01-15", true},
		{"2025/01/15", true},
		{"2025-01-15 10:30:00", true},
		{"2025-02-31", true},
		{"", true},
		{nil, true},
		{"2025-13-45", false},
		{"2025-00-10", false},
		{"2025-01-00", false},
		{"15/01/2025", false},
		{"2025-01-15T10:30:00Z", false},
		{"Jan 15 2025", false},
		{20250115, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.date), func(t *testing.T) {
			findings, gaps := newTestValidator().Validate(model.RecordSet{model.RecordOf("date", tt.date)})
			f := findingFor(t, findings, model.RuleDateISO)
			assert.Equal(t, tt.wantOK, f.OK)
			if !tt.wantOK {
				assert.NotEmpty(t, f.Value)
				assert.Contains(t, gaps, "Invalid date format: "+f.Value+". Use ISO format YYYY-MM-DD")
			}
		})
	}
}

func TestDateISO_ReportsRawValue(t *testing.T) {
	recs := model.RecordSet{
		model.RecordOf("issue_date", "2025-01-01"),
		model.RecordOf("issue_date", "2025-13-45"),
		model.RecordOf("issue_date", "bad"),
	}

	findings, _ := newTestValidator().Validate(recs)

	f := findingFor(t, findings, model.RuleDateISO)
	assert.False(t, f.OK)
	assert.Equal(t, "2025-13-45", f.Value)
}

func TestCurrencyAllowed(t *testing.T) {
	tests := []struct {
		currency string
		wantOK   bool
	}{
		{"AED", true},
		{"sar", true},
		{"Usd", true},
		{"", true},
		{"EURO", false},
		{"EUR", false},
		{" AED", false},
	}
	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			findings, gaps := newTestValidator().Validate(model.RecordSet{model.RecordOf("currency", tt.currency)})
			f := findingFor(t, findings, model.RuleCurrencyAllowed)
			assert.Equal(t, tt.wantOK, f.OK)
			if !tt.wantOK {
				assert.Equal(t, tt.currency, f.Value)
				assert.Contains(t, gaps, "Invalid currency "+tt.currency+". Allowed: AED, SAR, MYR, USD")
			}
		})
	}
}

func TestTRNPresent(t *testing.T) {
	tests := []struct {
		name        string
		rec         *model.Record
		wantDetails string
	}{
		{"both present", model.RecordOf("buyer_trn", "1", "seller_trn", "2"), ""},
		{"nested", model.RecordOf("buyer", model.RecordOf("trn", "1"), "seller", model.RecordOf("trn", "2")), ""},
		{"numeric", model.RecordOf("buyerTax", 1, "sellerTax", 2), ""},
		{"buyer missing", model.RecordOf("seller_trn", "2"), "Missing buyer.trn"},
		{"buyer blank", model.RecordOf("buyer_trn", "  ", "seller_trn", "2"), "Missing buyer.trn"},
		{"both missing reports buyer", model.NewRecord(), "Missing buyer.trn"},
		{"seller missing", model.RecordOf("buyer_trn", "1"), "Missing seller.trn"},
		{"seller blank", model.RecordOf("buyer_trn", "1", "seller_tax_id", ""), "Missing seller.trn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, gaps := newTestValidator().Validate(model.RecordSet{tt.rec})
			f := findingFor(t, findings, model.RuleTRNPresent)
			assert.Equal(t, tt.wantDetails == "", f.OK)
			assert.Equal(t, tt.wantDetails, f.Details)
			if tt.wantDetails != "" {
				assert.Equal(t, tt.wantDetails, gaps[len(gaps)-1])
			}
		})
	}
}

func TestValidate_GapsFollowRuleOrder(t *testing.T) {
	rec := model.RecordOf(
		"total_excl_vat", 1, "vat_amount", 1, "total_incl_vat", 5,
		"qty", 5, "unit_price", 100, "line_total", 400,
		"date", "2025-13-45",
		"currency", "EURO",
	)

	_, gaps := newTestValidator().Validate(model.RecordSet{rec})

	assert.Equal(t, []string{
		GapTotalsBalance,
		GapLineMath,
		"Invalid date format: 2025-13-45. Use ISO format YYYY-MM-DD",
		"Invalid currency EURO. Allowed: AED, SAR, MYR, USD",
		"Missing buyer.trn",
	}, gaps)
}

func TestValidate_Idempotent(t *testing.T) {
	recs := model.RecordSet{validRow(), model.RecordOf("qty", 5, "unit_price", 100, "line_total", 400, "currency", "EURO")}
	v := newTestValidator()

	f1, g1 := v.Validate(recs)
	f2, g2 := v.Validate(recs)
	if diff := cmp.Diff(f1, f2); diff != "" {
		t.Errorf("findings differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, g1, g2)
}
