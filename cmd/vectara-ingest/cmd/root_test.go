package cmd

import "testing"

func TestParseMetadata(t *testing.T) {
	meta, err := parseMetadata([]string{"team=docs", "year=2026", "note=a=b"})
	if err != nil {
		t.Fatalf("parseMetadata() error = %v", err)
	}
	if meta["team"] != "docs" || meta["year"] != "2026" {
		t.Errorf("metadata = %v", meta)
	}
	// Only the first '=' splits, the rest belongs to the value.
	if meta["note"] != "a=b" {
		t.Errorf("note = %v", meta["note"])
	}
}

func TestParseMetadata_Invalid(t *testing.T) {
	for _, pair := range []string{"noequals", "=value"} {
		if _, err := parseMetadata([]string{pair}); err == nil {
			t.Errorf("parseMetadata(%q) expected error", pair)
		}
	}
}

func TestParseMetadata_Empty(t *testing.T) {
	meta, err := parseMetadata(nil)
	if err != nil {
		t.Fatalf("parseMetadata(nil) error = %v", err)
	}
	if meta != nil {
		t.Errorf("metadata = %v, want nil", meta)
	}
}
