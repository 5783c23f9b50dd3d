package significance

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/hejijunhao/tagcheck/internal/model"
)

func TestClassifyThresholds(t *testing.T) {
	c := Default()
	tests := []struct {
		count, total int64
		wantP        float64
		want         model.Significance
	}{
		{1, 1_000_000, 0.000001, model.SignificanceNoise},
		{500, 1_000_000, 0.0005, model.SignificanceLow},
		{50_000, 1_000_000, 0.05, model.SignificanceSignificant},
		{300, 1_000_000, 0.0003, model.SignificanceLow},
		{2000, 1_000_000, 0.002, model.SignificanceSignificant},
		{5, 0, 0, model.SignificanceNoise},
		{0, 100, 0, model.SignificanceNoise},
		{200, 100, 1, model.SignificanceSignificant},
	}
	for _, tt := range tests {
		p, s := c.Classify(tt.count, tt.total)
		if math.Abs(p-tt.wantP) > 1e-12 || s != tt.want {
			t.Errorf("Classify(%d, %d) = %v, %s; want %v, %s", tt.count, tt.total, p, s, tt.wantP, tt.want)
		}
	}
}

func TestCustomThresholds(t *testing.T) {
	c := New(1, 10)
	if _, s := c.Classify(5, 1000); s != model.SignificanceNoise {
		t.Errorf("0.5%% with 1%% noise threshold = %s, want noise", s)
	}
	if _, s := c.Classify(50, 1000); s != model.SignificanceLow {
		t.Errorf("5%% with 10%% low threshold = %s, want low", s)
	}
}

func TestProportionsSumToOne(t *testing.T) {
	c := Default()
	counts := []model.EventCount{
		{EventName: "page_view", Count: 9000},
		{EventName: "view_item", Count: 990},
		{EventName: "scroll", Count: 9},
		{EventName: "bot_ping", Count: 1},
		{EventName: "view_item", Count: 0},
	}
	got := c.Proportions("/product/1", counts, 0)
	var sum float64
	var n int64
	for _, p := range got {
		sum += p.Proportion
		n += p.EventCount
		if p.PagePath != "/product/1" {
			t.Errorf("PagePath = %q", p.PagePath)
		}
	}
	if math.Abs(sum-1) > 1e-9 || n != 10000 {
		t.Errorf("sum(proportion) = %v, sum(count) = %d", sum, n)
	}
	want := []string{"page_view", "view_item", "scroll", "bot_ping"}
	var names []string
	for _, p := range got {
		names = append(names, p.EventName)
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	sig := Lookup(got)
	if sig["bot_ping"] != model.SignificanceNoise || sig["page_view"] != model.SignificanceSignificant {
		t.Errorf("unexpected significance: %v", sig)
	}
}

func TestCoverage(t *testing.T) {
	props := []model.EventProportion{
		{EventName: "page_view", Significance: model.SignificanceSignificant},
		{EventName: "view_item", Significance: model.SignificanceLow},
		{EventName: "add_to_cart", Significance: model.SignificanceSignificant},
		{EventName: "bot_ping", Significance: model.SignificanceNoise},
	}
	got := Coverage([]string{"page_view", "view_item", "purchase", "bot_ping", "page_view"}, props)
	want := model.Coverage{
		TruePositives:  2,
		FalsePositives: 1,
		FalseNegatives: 1,
		Precision:      2.0 / 3,
		Recall:         2.0 / 3,
		F1:             2.0 / 3,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Coverage mismatch (-want +got):\n%s", diff)
	}
}

func TestCoverageEmpty(t *testing.T) {
	got := Coverage(nil, nil)
	if got != (model.Coverage{}) {
		t.Errorf("Coverage(nil, nil) = %+v, want zero", got)
	}
}
