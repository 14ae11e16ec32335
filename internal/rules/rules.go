// Package rules checks uploaded invoice rows against five business rules.
// Each rule scans rows in order and stops at the first violation; rows
// without usable evidence are skipped.
package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/schema"
)

// Tolerance is the largest monetary difference still treated as equal.
const Tolerance = 0.01

// Gap messages.
const (
	GapTotalsBalance = "Total amounts do not balance (total_excl_vat + vat_amount != total_incl_vat)"
	GapLineMath      = "Line math error: line_total should equal qty * unit_price"
)

// Validator runs the rule set. It is safe for concurrent use.
type Validator struct {
	keys   Keys
	schema *schema.Schema
}

// New creates a Validator using the default key table.
func New(s *schema.Schema) *Validator {
	return NewWithKeys(s, DefaultKeys())
}

// NewWithKeys creates a Validator reading evidence through keys.
func NewWithKeys(s *schema.Schema, keys Keys) *Validator {
	return &Validator{keys: keys, schema: s}
}

type check func(model.RecordSet) (model.RuleFinding, string)

// Validate returns exactly one finding per rule in fixed order, plus the
// gap message of each failing rule in the same order.
func (v *Validator) Validate(records model.RecordSet) ([]model.RuleFinding, []string) {
	checks := []check{
		v.totalsBalance,
		v.lineMath,
		v.dateISO,
		v.currencyAllowed,
		v.trnPresent,
	}

	findings := make([]model.RuleFinding, 0, len(checks))
	gaps := []string{}
	for _, c := range checks {
		f, gap := c(records)
		findings = append(findings, f)
		if !f.OK {
			gaps = append(gaps, gap)
		}
	}
	return findings, gaps
}

func (v *Validator) totalsBalance(records model.RecordSet) (model.RuleFinding, string) {
	for i, row := range records {
		excl, ok1 := NumberField(row, v.keys.TotalExclVAT...)
		vat, ok2 := NumberField(row, v.keys.VATAmount...)
		incl, ok3 := NumberField(row, v.keys.TotalInclVAT...)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		expected := excl + vat
		if !finite(expected) {
			continue
		}
		if math.Abs(expected-incl) > Tolerance {
			return model.RuleFinding{
				Rule:    model.RuleTotalsBalance,
				Details: fmt.Sprintf("Row %d: expected %s, got %s", i+1, model.Fixed2(expected), model.Fixed2(incl)),
			}, GapTotalsBalance
		}
	}
	return model.RuleFinding{Rule: model.RuleTotalsBalance, OK: true}, ""
}

func (v *Validator) lineMath(records model.RecordSet) (model.RuleFinding, string) {
	for i, row := range records {
		for _, line := range linesOf(row) {
			qty, ok1 := NumberField(line, v.keys.Qty...)
			price, ok2 := NumberField(line, v.keys.UnitPrice...)
			total, ok3 := NumberField(line, v.keys.LineTotal...)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			expected := qty * price
			if !finite(expected) {
				continue
			}
			if math.Abs(expected-total) > Tolerance {
				exampleLine := i + 1
				exp, got := model.Round2(expected), model.Round2(total)
				return model.RuleFinding{
					Rule:        model.RuleLineMath,
					ExampleLine: &exampleLine,
					Expected:    &exp,
					Got:         &got,
				}, GapLineMath
			}
		}
	}
	return model.RuleFinding{Rule: model.RuleLineMath, OK: true}, ""
}

// linesOf returns the row's line items: the objects in its lines array
// when it has one, otherwise the row itself.
func linesOf(row *model.Record) []*model.Record {
	v, ok := row.Get("lines")
	if !ok {
		return []*model.Record{row}
	}
	items, ok := v.AsArray()
	if !ok {
		return []*model.Record{row}
	}
	lines := make([]*model.Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.AsObject(); ok {
			lines = append(lines, obj)
		}
	}
	return lines
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func (v *Validator) dateISO(records model.RecordSet) (model.RuleFinding, string) {
	for _, row := range records {
		raw, ok := StringField(row, v.keys.IssueDate...)
		if !ok || raw == "" {
			continue
		}
		if !validDate(raw) {
			return model.RuleFinding{Rule: model.RuleDateISO, Value: raw},
				fmt.Sprintf("Invalid date format: %s. Use ISO format YYYY-MM-DD", raw)
		}
	}
	return model.RuleFinding{Rule: model.RuleDateISO, OK: true}, ""
}

// validDate accepts YYYY-MM-DD, tolerating a space-separated time suffix
// and slash separators. Month length and leap years are not checked.
func validDate(raw string) bool {
	date, _, _ := strings.Cut(raw, " ")
	date = strings.ReplaceAll(date, "/", "-")
	if !isoDate.MatchString(date) {
		return false
	}
	month, _ := strconv.Atoi(date[5:7])
	day, _ := strconv.Atoi(date[8:10])
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}

func (v *Validator) currencyAllowed(records model.RecordSet) (model.RuleFinding, string) {
	for _, row := range records {
		raw, ok := StringField(row, v.keys.Currency...)
		if !ok || raw == "" {
			continue
		}
		if !v.schema.CurrencyAllowed(strings.ToUpper(raw)) {
			return model.RuleFinding{Rule: model.RuleCurrencyAllowed, Value: raw},
				fmt.Sprintf("Invalid currency %s. Allowed: %s", raw, strings.Join(v.schema.Currencies(), ", "))
		}
	}
	return model.RuleFinding{Rule: model.RuleCurrencyAllowed, OK: true}, ""
}

func (v *Validator) trnPresent(records model.RecordSet) (model.RuleFinding, string) {
	for _, row := range records {
		missing := ""
		if trn, _ := StringField(row, v.keys.BuyerTRN...); strings.TrimSpace(trn) == "" {
			missing = "buyer.trn"
		} else if trn, _ := StringField(row, v.keys.SellerTRN...); strings.TrimSpace(trn) == "" {
			missing = "seller.trn"
		}
		if missing != "" {
			msg := "Missing " + missing
			return model.RuleFinding{Rule: model.RuleTRNPresent, Details: msg}, msg
		}
	}
	return model.RuleFinding{Rule: model.RuleTRNPresent, OK: true}, ""
}
