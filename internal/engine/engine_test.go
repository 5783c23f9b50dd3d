package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hejijunhao/tagcheck/internal/engine/aggregate"
	"github.com/hejijunhao/tagcheck/internal/engine/testdata"
	"github.com/hejijunhao/tagcheck/internal/model"
)

func TestValidatePageEndToEnd(t *testing.T) {
	eng := New(nil, nil)

	page := model.PageInput{
		URL: "https://shop.example.com/product/12345",
		Events: []model.EventInput{{
			Name: "view_item",
			Predicted: []model.Prediction{
				{Name: "site_language", Raw: "ko"},
				{Name: "content_group", Raw: "PDP"},
				{Name: "price", Raw: "135,000"},
			},
			Actual: []model.ParameterValue{
				{Name: "site_language", Raw: "ko-KR"},
				{Name: "content_group", Raw: "OTHERS"},
				{Name: "price", Raw: "135000"},
			},
		}},
	}

	results := eng.ValidatePage(page)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	for _, c := range r.Parameters {
		if c.Verdict != model.VerdictCorrect {
			t.Errorf("%s: verdict %s, want CORRECT", c.Parameter, c.Verdict)
		}
	}
	if r.Accuracy != 1.0 || r.TotalParams != 3 || r.MatchedParams != 3 {
		t.Errorf("result = %d/%d (%.2f), want 3/3 (1.00)", r.MatchedParams, r.TotalParams, r.Accuracy)
	}
	if r.GroupLabel != "PRODUCT_DETAIL" {
		t.Errorf("GroupLabel = %q, want PRODUCT_DETAIL (inferred from URL)", r.GroupLabel)
	}
	if r.Significance != model.SignificanceUnknown {
		t.Errorf("Significance = %q, want unknown without counts", r.Significance)
	}
}

func TestParameterOrderAndSkip(t *testing.T) {
	eng := New(nil, nil)
	page := model.PageInput{
		URL: "https://shop.example.com/about",
		Events: []model.EventInput{{
			Name: "page_view",
			Predicted: []model.Prediction{
				{Name: "page_title", Raw: "About"},
				{Name: "page_location", Raw: "https://x", Confidence: model.ConfidenceSkip},
				{Name: "site_name", Raw: "shop"},
				{Name: "page_title", Raw: "ignored duplicate"},
			},
			Actual: []model.ParameterValue{
				{Name: "zeta", Raw: "1"},
				{Name: "page_location", Raw: "https://x?y"},
				{Name: "alpha", Raw: "2"},
				{Name: "page_title", Raw: "about"},
			},
		}},
	}
	r := eng.ValidatePage(page)[0]
	var names []string
	for _, c := range r.Parameters {
		names = append(names, c.Parameter)
	}
	want := []string{"page_title", "site_name", "alpha", "zeta"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("parameter order (-want +got):\n%s", diff)
	}
	if r.GroupLabel != UnknownGroup {
		t.Errorf("GroupLabel = %q, want %q", r.GroupLabel, UnknownGroup)
	}
	if r.MissingPredictions != 2 || r.MissingActual != 1 || r.MatchedParams != 1 {
		t.Errorf("counts = %+v", r)
	}
}

func TestFixtureVerdicts(t *testing.T) {
	eng := New(nil, nil)

	fixtures, err := testdata.LoadPages()
	if err != nil {
		t.Fatalf("LoadPages() error: %v", err)
	}

	for _, f := range fixtures {
		t.Run(f.Description, func(t *testing.T) {
			got := map[string]model.Verdict{}
			for _, r := range eng.ValidatePage(f.Page) {
				for _, c := range r.Parameters {
					got[r.EventName+":"+c.Parameter] = c.Verdict
				}
			}
			if diff := cmp.Diff(f.Expected, got); diff != "" {
				t.Errorf("verdicts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSignificanceFromCounts(t *testing.T) {
	eng := New(nil, nil)
	page := model.PageInput{
		URL: "https://shop.example.com/cart",
		Events: []model.EventInput{
			{Name: "view_cart", Predicted: []model.Prediction{{Name: "value", Raw: "10"}}},
			{Name: "bot_ping", Predicted: []model.Prediction{{Name: "value", Raw: "10"}}},
		},
		EventCounts: []model.EventCount{
			{EventName: "page_view", Count: 999_000},
			{EventName: "view_cart", Count: 999},
			{EventName: "bot_ping", Count: 1},
		},
	}
	results := eng.ValidatePage(page)
	if results[0].Significance != model.SignificanceLow {
		t.Errorf("view_cart = %q, want low", results[0].Significance)
	}
	if results[1].Significance != model.SignificanceNoise {
		t.Errorf("bot_ping = %q, want noise", results[1].Significance)
	}
	if results[0].GroupLabel != "CART" {
		t.Errorf("GroupLabel = %q, want CART", results[0].GroupLabel)
	}
}

func TestFixturesAggregate(t *testing.T) {
	eng := New(nil, nil)
	fixtures, err := testdata.LoadPages()
	if err != nil {
		t.Fatalf("LoadPages() error: %v", err)
	}
	var pages []model.PageInput
	for _, f := range fixtures {
		pages = append(pages, f.Page)
	}

	rep := aggregate.Aggregate(eng.ValidatePages(pages))

	var expected, matched int
	for _, f := range fixtures {
		for _, v := range f.Expected {
			expected++
			if v.IsMatch() {
				matched++
			}
		}
	}
	if rep.TotalParams != expected || rep.MatchedParams != matched {
		t.Errorf("report %d/%d, want %d/%d", rep.MatchedParams, rep.TotalParams, matched, expected)
	}
	if _, ok := rep.GroupAccuracy["ORDER"]; !ok {
		t.Errorf("GroupAccuracy missing ORDER: %v", rep.GroupAccuracy)
	}

	cov := eng.Coverage(pages)
	if cov == nil {
		t.Fatal("Coverage = nil, want scores from pages with counts")
	}
	// view_item and begin_checkout predicted and collected; page_view
	// collected on both counted pages but never predicted there.
	if cov.TruePositives != 2 || cov.FalsePositives != 0 || cov.FalseNegatives != 2 {
		t.Errorf("Coverage = %+v", cov)
	}
}

func TestCoverageNilWithoutCounts(t *testing.T) {
	eng := New(nil, nil)
	if cov := eng.Coverage([]model.PageInput{{URL: "https://x.test/"}}); cov != nil {
		t.Errorf("Coverage = %+v, want nil", cov)
	}
}

func TestPagePath(t *testing.T) {
	tests := []struct {
		page model.PageInput
		want string
	}{
		{model.PageInput{URL: "https://x.test/a/b?q=1"}, "/a/b"},
		{model.PageInput{URL: "https://x.test"}, "/"},
		{model.PageInput{URL: "https://x.test/a", Path: "/override"}, "/override"},
	}
	for _, tt := range tests {
		if got := PagePath(tt.page); got != tt.want {
			t.Errorf("PagePath(%+v) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestExplicitGroupLabelUsesAliases(t *testing.T) {
	eng := New(nil, nil)
	event := []model.EventInput{{
		Name:      "page_view",
		Predicted: []model.Prediction{{Name: "site_name", Raw: "shop"}},
		Actual:    []model.ParameterValue{{Name: "site_name", Raw: "SHOP"}},
	}}
	pages := []model.PageInput{
		{URL: "https://x.test/a", GroupLabel: "home", Events: event},
		{URL: "https://x.test/b", GroupLabel: "MAIN", Events: event},
		{URL: "https://x.test/c", GroupLabel: " main-page ", Events: event},
		{URL: "https://x.test/d", GroupLabel: "pdp", Events: event},
		{URL: "https://x.test/product/9", Events: event},
		{URL: "https://x.test/e", GroupLabel: "undefined", Events: event},
	}

	rep := aggregate.Aggregate(eng.ValidatePages(pages))
	want := map[string]int{"MAIN": 3, "PRODUCT_DETAIL": 2, UnknownGroup: 1}
	got := make(map[string]int, len(rep.GroupAccuracy))
	for g, tally := range rep.GroupAccuracy {
		got[g] = tally.Total
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("group totals (-want +got):\n%s", diff)
	}
}
