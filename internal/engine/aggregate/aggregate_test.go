package aggregate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/hejijunhao/tagcheck/internal/model"
)

func comparison(param string, v model.Verdict, predicted, actual any) model.Comparison {
	c := model.Comparison{Parameter: param, PredictedRaw: predicted, ActualRaw: actual, Verdict: v, Match: v.IsMatch()}
	if v == model.VerdictMismatch {
		c.Reason = model.ReasonValue
	}
	return c
}

func result(event, group string, sig model.Significance, params ...model.Comparison) model.EventResult {
	r := model.NewEventResult(event, "https://shop.example.com/"+event, group, params)
	r.Significance = sig
	return r
}

func syntheticResults() []model.EventResult {
	return []model.EventResult{
		result("page_view", "MAIN", model.SignificanceSignificant,
			comparison("site_language", model.VerdictCorrect, "ko", "ko-KR"),
			comparison("content_group", model.VerdictCorrect, "MAIN", "OTHERS"),
			comparison("page_title", model.VerdictMismatch, "Home", "Welcome"),
		),
		result("view_item", "PRODUCT_DETAIL", model.SignificanceSignificant,
			comparison("price", model.VerdictCorrect, "135000", "135,010"),
			comparison("product_name", model.VerdictCorrectDataMissing, "Shoe", nil),
			comparison("page_title", model.VerdictMismatch, "Shoe", "Shoe | Shop"),
			comparison("site_language", model.VerdictMissingActual, "ko", nil),
		),
		result("page_view", "PRODUCT_DETAIL", model.SignificanceLow,
			comparison("site_language", model.VerdictMissingPrediction, nil, "ko"),
			comparison("page_title", model.VerdictMismatch, "Product", "Shoe | Shop"),
		),
	}
}

func TestAggregateCorrectness(t *testing.T) {
	rep := Aggregate(syntheticResults())

	if rep.TotalParams != 9 || rep.MatchedParams != 4 {
		t.Fatalf("totals = %d/%d, want 4/9", rep.MatchedParams, rep.TotalParams)
	}
	if rep.OverallAccuracy != 4.0/9.0 {
		t.Errorf("OverallAccuracy = %v, want %v", rep.OverallAccuracy, 4.0/9.0)
	}

	var pTotal, pMatched, gTotal, gMatched int
	for _, tl := range rep.ParameterAccuracy {
		pTotal += tl.Total
		pMatched += tl.Matched
	}
	for _, tl := range rep.GroupAccuracy {
		gTotal += tl.Total
		gMatched += tl.Matched
	}
	if pTotal != rep.TotalParams || gTotal != rep.TotalParams {
		t.Errorf("map totals = %d / %d, want %d", pTotal, gTotal, rep.TotalParams)
	}
	if pMatched != rep.MatchedParams || gMatched != rep.MatchedParams {
		t.Errorf("map matched = %d / %d, want %d", pMatched, gMatched, rep.MatchedParams)
	}

	lang := rep.ParameterAccuracy["site_language"]
	if lang.Total != 3 || lang.Matched != 1 {
		t.Errorf("site_language tally = %+v", lang)
	}
	pdp := rep.GroupAccuracy["PRODUCT_DETAIL"]
	if pdp.Total != 6 || pdp.Matched != 2 {
		t.Errorf("PRODUCT_DETAIL tally = %+v", pdp)
	}

	wantVerdicts := map[model.Verdict]int{
		model.VerdictCorrect:            3,
		model.VerdictCorrectDataMissing: 1,
		model.VerdictMismatch:           3,
		model.VerdictMissingActual:      1,
		model.VerdictMissingPrediction:  1,
	}
	if diff := cmp.Diff(wantVerdicts, rep.VerdictCounts); diff != "" {
		t.Errorf("VerdictCounts mismatch (-want +got):\n%s", diff)
	}
	if len(rep.EventResults) != 3 {
		t.Errorf("EventResults = %d, want 3", len(rep.EventResults))
	}
}

func TestSuggestionThreshold(t *testing.T) {
	rep := Aggregate(syntheticResults())

	// page_view:page_title mismatches twice, view_item:page_title once.
	if len(rep.Improvements) != 1 {
		t.Fatalf("Improvements = %+v, want one suggestion", rep.Improvements)
	}
	s := rep.Improvements[0]
	if s.Key() != "page_view:page_title" || s.AffectedCount != 2 {
		t.Errorf("suggestion = %s x%d, want page_view:page_title x2", s.Key(), s.AffectedCount)
	}
	if s.SuggestedRule != `predicted "Home" but collected "Welcome"` {
		t.Errorf("SuggestedRule = %q", s.SuggestedRule)
	}
	if len(s.Examples) != 2 {
		t.Errorf("Examples = %v, want 2", s.Examples)
	}

	a := New(nil, WithMinOccurrences(1))
	for _, r := range syntheticResults() {
		a.Add(r)
	}
	if got := len(a.Report().Improvements); got != 2 {
		t.Errorf("with threshold 1: %d suggestions, want 2", got)
	}
}

func TestMissingVerdictsNeverSuggested(t *testing.T) {
	var results []model.EventResult
	for i := 0; i < 5; i++ {
		results = append(results, result("purchase", "ORDER_COMPLETE", model.SignificanceSignificant,
			comparison("transaction_id", model.VerdictMissingActual, "t1", nil),
			comparison("coupon", model.VerdictMissingPrediction, nil, "SALE"),
		))
	}
	if rep := Aggregate(results); len(rep.Improvements) != 0 {
		t.Errorf("Improvements = %+v, want none", rep.Improvements)
	}
}

func TestSuggestedRules(t *testing.T) {
	tests := []struct {
		param     string
		predicted []string
		actual    []string
		want      string
	}{
		{"coupon", []string{"Summer", "winter"}, []string{"SUMMER", "Winter"}, "normalize case"},
		{"site_language", []string{"ko", "ko"}, []string{"en-US", "ja"}, "unify locale code format"},
		{"price", []string{"100", "300"}, []string{"200", "400"}, "normalize numeric format"},
		{"page_title", []string{"b", "a"}, []string{"y", "x"}, `predicted "a" but collected "x"`},
	}
	for _, tt := range tests {
		a := New(nil)
		for i := range tt.predicted {
			a.Add(result("view_item", "PRODUCT_DETAIL", model.SignificanceSignificant,
				comparison(tt.param, model.VerdictMismatch, tt.predicted[i], tt.actual[i])))
		}
		imp := a.Report().Improvements
		if len(imp) != 1 || imp[0].SuggestedRule != tt.want {
			t.Errorf("%s: improvements = %+v, want rule %q", tt.param, imp, tt.want)
		}
	}
}

func TestExamplesCapped(t *testing.T) {
	a := New(nil)
	for _, v := range []string{"e", "d", "c", "b", "a", "a"} {
		a.Add(result("view_item", "PRODUCT_DETAIL", model.SignificanceSignificant,
			comparison("page_title", model.VerdictMismatch, v, "z")))
	}
	imp := a.Report().Improvements
	if len(imp) != 1 || imp[0].AffectedCount != 6 {
		t.Fatalf("improvements = %+v", imp)
	}
	want := []model.Example{{Predicted: "a", Actual: "z"}, {Predicted: "b", Actual: "z"}, {Predicted: "c", Actual: "z"}}
	if diff := cmp.Diff(want, imp[0].Examples); diff != "" {
		t.Errorf("Examples mismatch (-want +got):\n%s", diff)
	}
}

func TestNoiseExcludedFromCounters(t *testing.T) {
	results := append(syntheticResults(),
		result("bot_ping", "MAIN", model.SignificanceNoise,
			comparison("page_title", model.VerdictMismatch, "x", "y"),
			comparison("page_title", model.VerdictMismatch, "x", "y"),
		))
	rep := Aggregate(results)
	base := Aggregate(syntheticResults())

	if rep.TotalParams != base.TotalParams || rep.MatchedParams != base.MatchedParams {
		t.Errorf("noise changed totals: %d/%d vs %d/%d", rep.MatchedParams, rep.TotalParams, base.MatchedParams, base.TotalParams)
	}
	if len(rep.Improvements) != len(base.Improvements) {
		t.Errorf("noise produced suggestions: %+v", rep.Improvements)
	}
	if len(rep.EventResults) != 4 {
		t.Errorf("noise event should still be reported, got %d results", len(rep.EventResults))
	}
	if rep.Summary.NoiseEvents != 1 {
		t.Errorf("Summary.NoiseEvents = %d, want 1", rep.Summary.NoiseEvents)
	}
}

func TestMergeMatchesSinglePass(t *testing.T) {
	results := syntheticResults()
	single := Aggregate(results)

	left, right := New(nil), New(nil)
	left.Add(results[0])
	right.Add(results[1])
	right.Add(results[2])

	ab := New(nil)
	ab.Merge(left)
	ab.Merge(right)
	ba := New(nil)
	ba.Merge(right)
	ba.Merge(left)

	opts := cmp.Options{
		cmpopts.IgnoreFields(model.Report{}, "EventResults"),
		cmpopts.EquateApprox(0, 1e-12),
	}
	if diff := cmp.Diff(single, ab.Report(), opts); diff != "" {
		t.Errorf("left+right differs from single pass (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(single, ba.Report(), opts); diff != "" {
		t.Errorf("right+left differs from single pass (-want +got):\n%s", diff)
	}
}

func TestEmptyReport(t *testing.T) {
	rep := Aggregate(nil)
	if rep.OverallAccuracy != 0 || rep.TotalParams != 0 {
		t.Errorf("empty report = %+v", rep)
	}
	if rep.ParameterAccuracy == nil || rep.GroupAccuracy == nil || rep.Improvements == nil {
		t.Error("empty report should carry non-nil maps and slices")
	}
}

func TestWilson(t *testing.T) {
	if lo, hi := Wilson(0, 0); lo != 0 || hi != 0 {
		t.Errorf("Wilson(0,0) = %v, %v", lo, hi)
	}
	lo, hi := Wilson(5, 10)
	if math.Abs((lo+hi)/2-0.5) > 1e-9 {
		t.Errorf("Wilson(5,10) not centred on 0.5: %v, %v", lo, hi)
	}
	lo, hi = Wilson(10, 10)
	if math.Abs(hi-1) > 1e-9 || math.Abs(lo-0.7225) > 1e-3 {
		t.Errorf("Wilson(10,10) = %v, %v; want ~0.7225, 1", lo, hi)
	}
}

func TestSummary(t *testing.T) {
	rep := Aggregate(syntheticResults())
	s := rep.Summary
	if s.ScoredEvents != 3 || s.SignificantEvents != 2 || s.LowEvents != 1 {
		t.Fatalf("Summary = %+v", s)
	}
	// Per-event accuracy: 2/3, 2/4, 0/2.
	wantMean := (2.0/3 + 0.5 + 0) / 3
	if math.Abs(s.MeanAccuracy-wantMean) > 1e-9 {
		t.Errorf("MeanAccuracy = %v, want %v", s.MeanAccuracy, wantMean)
	}
	if s.MedianAccuracy != 0.5 {
		t.Errorf("MedianAccuracy = %v, want 0.5", s.MedianAccuracy)
	}
	if s.P10Accuracy != 0 {
		t.Errorf("P10Accuracy = %v, want 0", s.P10Accuracy)
	}
}
