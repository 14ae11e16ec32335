package analyzer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/readiness-cli/internal/mapper"
	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/rules"
	"github.com/sells-group/readiness-cli/internal/schema"
	"github.com/sells-group/readiness-cli/internal/scoring"
)

func sampleRecords() model.RecordSet {
	return model.RecordSet{
		model.RecordOf(
			"inv_id", "INV-1",
			"date", "2025-01-15",
			"currency", "AED",
			"total_excl_vat", 100,
			"vat_amount", 5,
			"total_incl_vat", 105,
			"seller_name", "Seller",
			"seller_trn", "100",
			"buyer_name", "Buyer",
			"buyer_trn", "200",
			"lines", []*model.Record{
				model.RecordOf("sku", "A", "qty", 2, "unit_price", 25, "line_total", 50),
				model.RecordOf("sku", "B", "qty", 1, "unit_price", 50, "line_total", 50),
			},
		),
		model.RecordOf(
			"inv_id", "INV-2",
			"date", "2025-13-45",
			"currency", "EURO",
			"qty", 5, "unit_price", 100, "line_total", 400,
		),
	}
}

func TestAnalyze_MatchesSequentialEvaluation(t *testing.T) {
	s := schema.Default()
	a := New(s, WithDB("sqlite"), WithIDFunc(func() string { return "r_test0001" }))
	in := Input{
		Records:       sampleRecords(),
		RowsParsed:    2,
		TotalRows:     2,
		Questionnaire: model.Questionnaire{Webhooks: true, Retries: true},
		Country:       "AE",
		ERP:           "SAP",
	}

	report, err := a.Analyze(context.Background(), in)
	require.NoError(t, err)

	cov := mapper.New(s).Map(in.Records)
	findings, gaps := rules.New(s).Validate(in.Records)
	scores := scoring.New(s).Score(2, 2, cov, findings, in.Questionnaire)

	want := &model.Report{
		ReportID:     "r_test0001",
		Scores:       scores,
		Readiness:    scoring.ReadinessLabel(scores.Overall),
		Coverage:     cov,
		RuleFindings: findings,
		Gaps:         gaps,
		Meta: model.ReportMeta{
			RowsParsed: 2,
			TotalRows:  2,
			LinesTotal: 3,
			Country:    "AE",
			ERP:        "SAP",
			DB:         "sqlite",
		},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_ReportShape(t *testing.T) {
	report, err := New(schema.Default()).Analyze(context.Background(), Input{
		Records:    sampleRecords(),
		RowsParsed: 2,
		TotalRows:  2,
	})
	require.NoError(t, err)

	assert.Regexp(t, `^r_[0-9a-f]{8}$`, report.ReportID)
	assert.Len(t, report.RuleFindings, 5)
	assert.Contains(t, report.Gaps, "Invalid currency EURO. Allowed: AED, SAR, MYR, USD")
	assert.Contains(t, []string{scoring.LabelHigh, scoring.LabelMedium, scoring.LabelLow}, report.Readiness)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"reportId", "scores", "readiness", "coverage", "ruleFindings", "gaps", "meta"} {
		assert.Contains(t, decoded, key)
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	report, err := New(schema.Default()).Analyze(context.Background(), Input{})
	require.NoError(t, err)

	assert.Equal(t, model.Scores{}, report.Scores)
	assert.Equal(t, scoring.LabelLow, report.Readiness)
	assert.Len(t, report.Coverage.Missing, 13)
	assert.Empty(t, report.Gaps)
	assert.Equal(t, 0, report.Meta.LinesTotal)
}

func TestAnalyze_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(schema.Default()).Analyze(ctx, Input{Records: sampleRecords()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinesTotal(t *testing.T) {
	recs := model.RecordSet{
		model.RecordOf("lines", []any{model.NewRecord(), model.NewRecord(), model.NewRecord()}),
		model.RecordOf("qty", 1),
		model.RecordOf("lines", []any{}),
		model.RecordOf("lines", "not a list"),
	}
	assert.Equal(t, 5, LinesTotal(recs))
	assert.Equal(t, 0, LinesTotal(nil))
}

func TestFromUpload(t *testing.T) {
	u := &model.Upload{ID: "u_1", Country: "SA", ERP: "Odoo", RowsParsed: 3, TotalRows: 4, Records: sampleRecords()}
	q := model.Questionnaire{SandboxEnv: true}

	in := FromUpload(u, q)
	assert.Equal(t, 3, in.RowsParsed)
	assert.Equal(t, 4, in.TotalRows)
	assert.Equal(t, "SA", in.Country)
	assert.Equal(t, "Odoo", in.ERP)
	assert.Equal(t, q, in.Questionnaire)
}

func TestAnalyze_NonFiniteNumbersDoNotBreakReport(t *testing.T) {
	a := New(schema.Default(), WithIDFunc(func() string { return "r_inf" }))
	in := Input{
		Records: model.RecordSet{
			model.RecordOf("qty", 1, "unit_price", 1, "line_total", "Infinity",
				"total_excl_vat", "1e400", "vat_amount", 5, "total_incl_vat", 105),
		},
		RowsParsed: 1,
		TotalRows:  1,
	}

	var report *model.Report
	require.NotPanics(t, func() {
		var err error
		report, err = a.Analyze(context.Background(), in)
		require.NoError(t, err)
	})
	_, err := json.Marshal(report)
	assert.NoError(t, err)
}
