package main

import (
	"strings"
	"testing"
)

func TestRenderTableAlignsNumericColumns(t *testing.T) {
	out := renderTable(
		[]string{"CHANNEL", "PID"},
		[][]string{{"alpha", "42"}},
		2,
	)
	for _, want := range []string{"CHANNEL", "PID", "alpha"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "│  42 │") {
		t.Fatalf("pid column should be right-aligned:\n%s", out)
	}

	left := renderTable([]string{"CHANNEL", "PID"}, [][]string{{"alpha", "42"}})
	if !strings.Contains(left, "│ 42  │") {
		t.Fatalf("unconfigured column should stay left-aligned:\n%s", left)
	}
}
