package models

import (
	"errors"
	"testing"
)

func TestNormalizeFields(t *testing.T) {
	tests := []struct {
		name    string
		docType DocumentType
		raw     Fields
		want    Fields
		wantErr []string
	}{
		{
			name:    "currency from float and string",
			docType: DocumentTypeKUF,
			raw: Fields{
				"invoice_number": "KUF-17",
				"net_total":      2542.37,
				"gross_total":    "2974.57",
				"invoice_date":   "2024-03-01",
			},
			want: Fields{
				"invoice_number": "KUF-17",
				"net_total":      "2542.37",
				"gross_total":    "2974.57",
				"invoice_date":   "2024-03-01",
			},
		},
		{
			name:    "empty strings become nil",
			docType: DocumentTypeKIF,
			raw:     Fields{"note": "  ", "due_date": ""},
			want:    Fields{"note": nil, "due_date": nil},
		},
		{
			name:    "date from RFC3339 and boolean from string",
			docType: DocumentTypeContract,
			raw:     Fields{"start_date": "2024-01-15T00:00:00Z", "is_active": "true"},
			want:    Fields{"start_date": "2024-01-15", "is_active": true},
		},
		{
			name:    "unknown key and bad amount",
			docType: DocumentTypeKIF,
			raw:     Fields{"total_count": 3.0, "net_total": "abc"},
			wantErr: []string{"total_count", "net_total"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeFields(tt.docType, tt.raw)
			if tt.wantErr != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				seen := map[string]bool{}
				for _, fe := range verr.Fields {
					seen[fe.Field] = true
				}
				for _, key := range tt.wantErr {
					if !seen[key] {
						t.Errorf("expected error for field %s, got %v", key, verr.Fields)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(Schema(tt.docType)) {
				t.Errorf("expected every schema key, got %d of %d", len(got), len(Schema(tt.docType)))
			}
			for key, want := range tt.want {
				if got[key] != want {
					t.Errorf("%s: got %#v, want %#v", key, got[key], want)
				}
			}
		})
	}
}

func TestFormatValueUsesKindNotKeyName(t *testing.T) {
	// transaction_count is a number even though the key reads like a counter of amounts
	rows := DisplayRows(DocumentTypeBankTransactions, Fields{
		"transaction_count": 12.0,
		"opening_balance":   "100.50",
		"statement_date":    "2024-05-31",
		"note":              nil,
	})

	want := map[string]string{
		"transaction_count": "12",
		"opening_balance":   "100.50",
		"statement_date":    "31.05.2024",
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(rows), rows)
	}
	for _, row := range rows {
		if want[row.Key] != row.Value {
			t.Errorf("%s: got %q, want %q", row.Key, row.Value, want[row.Key])
		}
	}
}

func TestFormatBoolean(t *testing.T) {
	if got := FormatValue(FieldBoolean, true); got != "Yes" {
		t.Errorf("got %q", got)
	}
	if got := FormatValue(FieldBoolean, false); got != "No" {
		t.Errorf("got %q", got)
	}
}

func TestFieldsCloneAndEqual(t *testing.T) {
	original := Fields{"net_total": "10.00", "note": nil}
	clone := original.Clone()
	clone["net_total"] = "20.00"

	if original["net_total"] != "10.00" {
		t.Error("clone must not share storage with the original")
	}
	if original.Equal(clone) {
		t.Error("expected fields to differ")
	}
	if !original.Equal(Fields{"net_total": "10.00"}) {
		t.Error("missing key should equal nil value")
	}
}

func TestMissingRequired(t *testing.T) {
	fields, err := NormalizeFields(DocumentTypeContract, Fields{"contract_number": "C-1"})
	if err != nil {
		t.Fatal(err)
	}
	missing := MissingRequired(DocumentTypeContract, fields)
	if len(missing) != 2 || missing[0] != "partner_name" || missing[1] != "start_date" {
		t.Errorf("unexpected missing fields: %v", missing)
	}
}

func TestSegmentsAndBuckets(t *testing.T) {
	for _, dt := range DocumentTypes {
		got, ok := DocumentTypeFromSegment(dt.Segment())
		if !ok || got != dt {
			t.Errorf("segment round trip failed for %s", dt)
		}
		if bucket, ok := dt.Bucket(); ok && bucket.DocumentType() != dt {
			t.Errorf("bucket %s maps back to %s, want %s", bucket, bucket.DocumentType(), dt)
		}
	}
	if _, ok := DocumentTypePartner.Bucket(); ok {
		t.Error("partners have no upload bucket")
	}
	if b, ok := ParseBucket("bank-transactions"); !ok || b != BucketTransactions {
		t.Error("bank-transactions alias should resolve to transactions")
	}
	if _, ok := ParseBucket("invoices"); ok {
		t.Error("unknown bucket accepted")
	}
}

func TestConformKeepsEveryKey(t *testing.T) {
	got := Conform(DocumentTypeKUF, Fields{
		"net_total":  2542.37,
		"due_date":   "soon",
		"created_at": "2024-01-01",
	})

	if len(got) != len(Schema(DocumentTypeKUF)) {
		t.Fatalf("expected %d keys, got %d", len(Schema(DocumentTypeKUF)), len(got))
	}
	if got["net_total"] != "2542.37" {
		t.Errorf("net_total = %#v", got["net_total"])
	}
	if got["due_date"] != "soon" {
		t.Errorf("unparsable value should be kept, got %#v", got["due_date"])
	}
	if _, ok := got["created_at"]; ok {
		t.Error("unknown key kept")
	}
	if v, ok := got["supplier_name"]; !ok || v != nil {
		t.Errorf("missing key should be present and nil, got %#v", v)
	}
}
