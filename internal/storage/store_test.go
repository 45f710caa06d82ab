package storage

import (
	"testing"
)

func TestClampPage(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "zero limit defaults", limit: 0, offset: 0, wantLimit: DefaultListLimit, wantOffset: 0},
		{name: "negative limit defaults", limit: -5, offset: 0, wantLimit: DefaultListLimit, wantOffset: 0},
		{name: "limit within bounds", limit: 50, offset: 10, wantLimit: 50, wantOffset: 10},
		{name: "limit at max", limit: MaxListLimit, offset: 0, wantLimit: MaxListLimit, wantOffset: 0},
		{name: "limit above max capped", limit: 5000, offset: 0, wantLimit: MaxListLimit, wantOffset: 0},
		{name: "negative offset zeroed", limit: 20, offset: -1, wantLimit: 20, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := clampPage(tt.limit, tt.offset)
			if limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", limit, tt.wantLimit)
			}
			if offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tt.wantOffset)
			}
		})
	}
}

func TestNullText(t *testing.T) {
	if nullText("").Valid {
		t.Error("empty string should map to NULL")
	}
	got := nullText("hello")
	if !got.Valid || got.String != "hello" {
		t.Errorf("nullText(hello) = %+v", got)
	}
}

func TestTextValue(t *testing.T) {
	if v := textValue(nullText("")); v != "" {
		t.Errorf("NULL should unwrap to empty string, got %q", v)
	}
	if v := textValue(nullText("x")); v != "x" {
		t.Errorf("got %q", v)
	}
}

func TestMarshalMetadata_NilIsEmptyObject(t *testing.T) {
	data, err := marshalMetadata(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("nil metadata should marshal to {}, got %s", data)
	}
}
