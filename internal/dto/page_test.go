package dto

import (
	"math"
	"testing"
)

func TestNormalizeClampsPaging(t *testing.T) {
	tests := []struct {
		name       string
		in         ListParams
		wantPage   int
		wantPer    int
		wantOffset uint64
	}{
		{name: "defaults", in: ListParams{}, wantPage: 1, wantPer: DefaultPerPage, wantOffset: 0},
		{name: "third page", in: ListParams{Page: 3, PerPage: 25}, wantPage: 3, wantPer: 25, wantOffset: 50},
		{name: "per page capped", in: ListParams{Page: 2, PerPage: 5000}, wantPage: 2, wantPer: MaxPerPage, wantOffset: 100},
		{name: "huge page", in: ListParams{Page: math.MaxInt, PerPage: MaxPerPage}, wantPage: MaxPage, wantPer: MaxPerPage, wantOffset: uint64(MaxPage-1) * MaxPerPage},
		{name: "negative page", in: ListParams{Page: -4}, wantPage: 1, wantPer: DefaultPerPage, wantOffset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got.Page != tt.wantPage || got.PerPage != tt.wantPer {
				t.Errorf("Normalize() page=%d perPage=%d, want %d/%d", got.Page, got.PerPage, tt.wantPage, tt.wantPer)
			}
			if got.Offset() != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", got.Offset(), tt.wantOffset)
			}
			if got.SortOrder != SortDesc {
				t.Errorf("SortOrder = %q", got.SortOrder)
			}
		})
	}
}
