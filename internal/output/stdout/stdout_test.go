package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/output"
)

func testReport() model.Report {
	params := []model.Comparison{
		{Parameter: "currency", PredictedRaw: "KRW", ActualRaw: "krw", Match: true, Verdict: model.VerdictCorrect},
		{Parameter: "page_title", PredictedRaw: "Shoes", ActualRaw: "Boots", Verdict: model.VerdictMismatch, Reason: model.ReasonValue},
	}
	return model.Report{
		OverallAccuracy: 0.5,
		TotalParams:     2,
		MatchedParams:   1,
		EventResults: []model.EventResult{
			model.NewEventResult("view_item", "https://shop.example.com/product/1", "PRODUCT_DETAIL", params),
		},
		Improvements: []model.RuleSuggestion{},
	}
}

// captureStdout redirects os.Stdout to capture output.
func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestOutputCompactJSON(t *testing.T) {
	result := captureStdout(func() {
		out := New(output.Standard, false)
		out.Write(context.Background(), testReport())
	})

	// Should be a single line.
	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["overall_accuracy"] != 0.5 {
		t.Fatalf("expected overall_accuracy=0.5, got %v", m["overall_accuracy"])
	}
}

func TestOutputPrettyJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Standard, true)
	if err := out.Write(context.Background(), testReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if !strings.Contains(buf.String(), "  ") {
		t.Fatal("expected indented output for pretty mode")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected multi-line pretty output, got %d lines", len(lines))
	}
}

func TestOutputMinimalOmitsEventResults(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Minimal, false)
	out.Write(context.Background(), testReport())

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := m["event_results"]; ok {
		t.Fatal("event_results should be omitted at Minimal")
	}
	if m["total_params"] != float64(2) {
		t.Fatalf("total_params should be preserved, got %v", m["total_params"])
	}
}

func TestOutputStandardDropsMatches(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Standard, false)
	out.Write(context.Background(), testReport())

	var r model.Report
	if err := json.Unmarshal(buf.Bytes(), &r); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(r.EventResults) != 1 || len(r.EventResults[0].Parameters) != 1 {
		t.Fatalf("expected one non-matching comparison, got %+v", r.EventResults)
	}
	if r.EventResults[0].Parameters[0].Verdict != model.VerdictMismatch {
		t.Errorf("verdict = %q, want MISMATCH", r.EventResults[0].Parameters[0].Verdict)
	}
}
