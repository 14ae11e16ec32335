package rules

import (
	"math"
	"strings"

	"github.com/sells-group/readiness-cli/internal/model"
)

// Keys lists, per logical attribute, the row keys tried in order when
// reading evidence. A key containing a dot walks nested objects.
type Keys struct {
	TotalExclVAT []string
	VATAmount    []string
	TotalInclVAT []string
	Qty          []string
	UnitPrice    []string
	LineTotal    []string
	IssueDate    []string
	Currency     []string
	BuyerTRN     []string
	SellerTRN    []string
}

// DefaultKeys returns the historically observed key names for each
// attribute.
func DefaultKeys() Keys {
	return Keys{
		TotalExclVAT: []string{"total_excl_vat", "totalNet", "total_net"},
		VATAmount:    []string{"vat_amount", "vat", "tax_amount"},
		TotalInclVAT: []string{"total_incl_vat", "grandTotal", "grand_total"},
		Qty:          []string{"qty", "quantity", "lineQty", "line_qty"},
		UnitPrice:    []string{"unit_price", "unitPrice", "price", "linePrice", "line_price"},
		LineTotal:    []string{"line_total", "lineTotal", "total", "amount"},
		IssueDate:    []string{"issue_date", "date", "invoice_date", "issued_on"},
		Currency:     []string{"currency", "curr", "invoice_currency"},
		BuyerTRN:     []string{"buyer_trn", "buyer.trn", "buyerTax", "buyer_tax_id"},
		SellerTRN:    []string{"seller_trn", "seller.trn", "sellerTax", "seller_tax_id"},
	}
}

// lookup returns the value of the first key present with a non-null value.
func lookup(rec *model.Record, keys []string) (model.Value, bool) {
	for _, key := range keys {
		v, ok := walk(rec, key)
		if ok && !v.IsNull() {
			return v, true
		}
	}
	return model.Null(), false
}

func walk(rec *model.Record, key string) (model.Value, bool) {
	if !strings.Contains(key, ".") {
		return rec.Get(key)
	}
	cur := rec
	parts := strings.Split(key, ".")
	for i, part := range parts {
		v, ok := cur.Get(part)
		if !ok {
			return model.Null(), false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.AsObject()
		if !ok {
			return model.Null(), false
		}
		cur = next
	}
	return model.Null(), false
}

// NumberField reads the first present key as a number. Text is parsed
// from its leading numeric prefix. A present value that cannot be read as
// a finite number yields false without trying later keys.
func NumberField(rec *model.Record, keys ...string) (float64, bool) {
	v, ok := lookup(rec, keys)
	if !ok {
		return 0, false
	}
	f, ok := v.AsNumber()
	if !ok {
		s, isStr := v.AsString()
		if !isStr {
			return 0, false
		}
		if f, ok = model.ParseNumber(s); !ok {
			return 0, false
		}
	}
	if !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// StringField reads the first present key as text. Numbers and bools are
// stringified; objects and arrays are not.
func StringField(rec *model.Record, keys ...string) (string, bool) {
	v, ok := lookup(rec, keys)
	if !ok {
		return "", false
	}
	return v.Scalar()
}
