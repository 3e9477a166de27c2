package main

import "testing"

// TestParseList verifies comma-separated scales are parsed and blanks skipped
func TestParseList(t *testing.T) {
	values, err := parseList(" 1, 2.5,,4 ")
	if err != nil {
		t.Fatalf("parseList failed: %v", err)
	}
	expected := []float64{1, 2.5, 4}
	if len(values) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, values)
	}
	for i := range expected {
		if values[i] != expected[i] {
			t.Errorf("Value %d: expected %g, got %g", i, expected[i], values[i])
		}
	}

	if _, err := parseList("1,abc"); err == nil {
		t.Error("Expected error for a non-numeric entry")
	}
}
