package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldKind is the semantic type of a field. Validation and display are driven by it,
// never by the field's key name.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldCurrency FieldKind = "currency"
	FieldDate     FieldKind = "date"
	FieldBoolean  FieldKind = "boolean"
	FieldNumber   FieldKind = "number"
)

const DateLayout = "2006-01-02"

const displayDateLayout = "02.01.2006"

type FieldSpec struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
}

// Fields maps a field key to its normalised value: string for text/currency/date,
// bool for boolean, float64 for number, nil when empty.
type Fields map[string]any

// Clone returns a shallow copy. Values are immutable scalars, so this is a full copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Equal reports whether two field sets hold the same values, treating a missing key as nil.
func (f Fields) Equal(other Fields) bool {
	for k, v := range f {
		if !reflect.DeepEqual(v, other[k]) {
			return false
		}
	}
	for k, v := range other {
		if _, ok := f[k]; !ok && v != nil {
			return false
		}
	}
	return true
}

var schemas = map[DocumentType][]FieldSpec{
	DocumentTypeKIF: {
		{Key: "invoice_number", Label: "Invoice number", Kind: FieldText, Required: true},
		{Key: "invoice_type", Label: "Invoice type", Kind: FieldText},
		{Key: "customer_name", Label: "Customer", Kind: FieldText, Required: true},
		{Key: "customer_tax_id", Label: "Customer tax ID", Kind: FieldText},
		{Key: "invoice_date", Label: "Invoice date", Kind: FieldDate, Required: true},
		{Key: "due_date", Label: "Due date", Kind: FieldDate},
		{Key: "delivery_period", Label: "Delivery period", Kind: FieldText},
		{Key: "net_total", Label: "Net total", Kind: FieldCurrency, Required: true},
		{Key: "vat_amount", Label: "VAT amount", Kind: FieldCurrency},
		{Key: "gross_total", Label: "Gross total", Kind: FieldCurrency},
		{Key: "note", Label: "Note", Kind: FieldText},
	},
	DocumentTypeKUF: {
		{Key: "invoice_number", Label: "Invoice number", Kind: FieldText, Required: true},
		{Key: "supplier_name", Label: "Supplier", Kind: FieldText, Required: true},
		{Key: "supplier_tax_id", Label: "Supplier tax ID", Kind: FieldText},
		{Key: "invoice_date", Label: "Invoice date", Kind: FieldDate, Required: true},
		{Key: "due_date", Label: "Due date", Kind: FieldDate},
		{Key: "received_date", Label: "Received date", Kind: FieldDate},
		{Key: "net_total", Label: "Net total", Kind: FieldCurrency, Required: true},
		{Key: "vat_amount", Label: "VAT amount", Kind: FieldCurrency},
		{Key: "gross_total", Label: "Gross total", Kind: FieldCurrency},
		{Key: "note", Label: "Note", Kind: FieldText},
	},
	DocumentTypeContract: {
		{Key: "contract_number", Label: "Contract number", Kind: FieldText, Required: true},
		{Key: "partner_name", Label: "Partner", Kind: FieldText, Required: true},
		{Key: "contract_type", Label: "Contract type", Kind: FieldText},
		{Key: "start_date", Label: "Start date", Kind: FieldDate, Required: true},
		{Key: "end_date", Label: "End date", Kind: FieldDate},
		{Key: "amount", Label: "Amount", Kind: FieldCurrency},
		{Key: "currency", Label: "Currency", Kind: FieldText},
		{Key: "payment_terms", Label: "Payment terms", Kind: FieldText},
		{Key: "is_active", Label: "Active", Kind: FieldBoolean},
		{Key: "note", Label: "Note", Kind: FieldText},
	},
	DocumentTypeBankTransactions: {
		{Key: "statement_number", Label: "Statement number", Kind: FieldText, Required: true},
		{Key: "account_number", Label: "Account number", Kind: FieldText, Required: true},
		{Key: "bank_name", Label: "Bank", Kind: FieldText},
		{Key: "statement_date", Label: "Statement date", Kind: FieldDate, Required: true},
		{Key: "opening_balance", Label: "Opening balance", Kind: FieldCurrency},
		{Key: "closing_balance", Label: "Closing balance", Kind: FieldCurrency},
		{Key: "total_inflow", Label: "Total inflow", Kind: FieldCurrency},
		{Key: "total_outflow", Label: "Total outflow", Kind: FieldCurrency},
		{Key: "transaction_count", Label: "Transactions", Kind: FieldNumber},
		{Key: "note", Label: "Note", Kind: FieldText},
	},
	DocumentTypePartner: {
		{Key: "name", Label: "Name", Kind: FieldText, Required: true},
		{Key: "short_name", Label: "Short name", Kind: FieldText},
		{Key: "country_iso", Label: "Country", Kind: FieldText},
		{Key: "vat_number", Label: "VAT number", Kind: FieldText},
		{Key: "tax_id", Label: "Tax ID", Kind: FieldText},
		{Key: "address", Label: "Address", Kind: FieldText},
		{Key: "email", Label: "Email", Kind: FieldText},
		{Key: "phone", Label: "Phone", Kind: FieldText},
		{Key: "iban", Label: "IBAN", Kind: FieldText},
		{Key: "is_active", Label: "Active", Kind: FieldBoolean},
	},
}

// Schema returns the ordered field configuration of a family.
func Schema(t DocumentType) []FieldSpec {
	specs := schemas[t]
	out := make([]FieldSpec, len(specs))
	copy(out, specs)
	return out
}

func LookupField(t DocumentType, key string) (FieldSpec, bool) {
	for _, spec := range schemas[t] {
		if spec.Key == key {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// IsSortableKey reports whether key can be used to order a family's listing.
func IsSortableKey(t DocumentType, key string) bool {
	_, ok := LookupField(t, key)
	return ok
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed normalisation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// NormalizeFields converts raw values to the canonical form of the family's schema.
// The result holds every schema key; absent or empty values become nil so they can be
// filled in later. Unknown keys are rejected.
func NormalizeFields(t DocumentType, raw Fields) (Fields, error) {
	specs, ok := schemas[t]
	if !ok {
		return nil, fmt.Errorf("unknown document type %q", t)
	}

	var verr ValidationError
	for key := range raw {
		if _, known := LookupField(t, key); !known {
			verr.Fields = append(verr.Fields, FieldError{Field: key, Message: "unknown field"})
		}
	}

	out := make(Fields, len(specs))
	for _, spec := range specs {
		value, err := normalizeValue(spec.Kind, raw[spec.Key])
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{Field: spec.Key, Message: err.Error()})
			continue
		}
		out[spec.Key] = value
	}

	if len(verr.Fields) > 0 {
		return nil, &verr
	}
	return out, nil
}

// MissingRequired returns the required keys of the family that hold no value.
func MissingRequired(t DocumentType, f Fields) []string {
	var missing []string
	for _, spec := range schemas[t] {
		if spec.Required && f[spec.Key] == nil {
			missing = append(missing, spec.Key)
		}
	}
	return missing
}

func normalizeValue(kind FieldKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		v = s
	}

	switch kind {
	case FieldText:
		switch val := v.(type) {
		case string:
			return val, nil
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64), nil
		case json.Number:
			return val.String(), nil
		}
		return nil, fmt.Errorf("expected text")
	case FieldCurrency:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		return d.StringFixed(2), nil
	case FieldDate:
		switch val := v.(type) {
		case string:
			if d, err := time.Parse(DateLayout, val); err == nil {
				return d.Format(DateLayout), nil
			}
			if d, err := time.Parse(time.RFC3339, val); err == nil {
				return d.Format(DateLayout), nil
			}
			if d, err := time.Parse(displayDateLayout, val); err == nil {
				return d.Format(DateLayout), nil
			}
			return nil, fmt.Errorf("expected date in YYYY-MM-DD format")
		case time.Time:
			return val.Format(DateLayout), nil
		}
		return nil, fmt.Errorf("expected date")
	case FieldBoolean:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("expected boolean")
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected boolean")
	case FieldNumber:
		switch val := v.(type) {
		case float64:
			return val, nil
		case int:
			return float64(val), nil
		case int64:
			return float64(val), nil
		case json.Number:
			n, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("expected number")
			}
			return n, nil
		case string:
			n, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("expected number")
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected number")
	}
	return nil, fmt.Errorf("unsupported field kind %q", kind)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(val, " ", ""))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("expected amount")
		}
		return d, nil
	}
	return decimal.Decimal{}, fmt.Errorf("expected amount")
}

// FormatValue renders a normalised value for display. Empty values render as "".
func FormatValue(kind FieldKind, v any) string {
	if v == nil {
		return ""
	}
	switch kind {
	case FieldCurrency:
		d, err := toDecimal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return d.StringFixed(2)
	case FieldDate:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprint(v)
		}
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return s
		}
		return d.Format(displayDateLayout)
	case FieldBoolean:
		if b, ok := v.(bool); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	case FieldNumber:
		if n, ok := v.(float64); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

type DisplayRow struct {
	Key   string
	Label string
	Kind  FieldKind
	Value string
}

// DisplayRows renders the family's fields in schema order, omitting empty values.
func DisplayRows(t DocumentType, f Fields) []DisplayRow {
	var rows []DisplayRow
	for _, spec := range schemas[t] {
		value := FormatValue(spec.Kind, f[spec.Key])
		if value == "" {
			continue
		}
		rows = append(rows, DisplayRow{Key: spec.Key, Label: spec.Label, Kind: spec.Kind, Value: value})
	}
	return rows
}

// Conform maps a stored field set onto the family's schema: every schema key is present,
// values are normalised where possible and kept as received otherwise, unknown keys are
// dropped.
func Conform(t DocumentType, raw Fields) Fields {
	specs := schemas[t]
	out := make(Fields, len(specs))
	for _, spec := range specs {
		value, err := normalizeValue(spec.Kind, raw[spec.Key])
		if err != nil {
			value = raw[spec.Key]
		}
		out[spec.Key] = value
	}
	return out
}
