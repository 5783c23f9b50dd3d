package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/source"
)

func TestCounts_Success(t *testing.T) {
	var got reportRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/properties/123456:runReport" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{
			"rows": [
				{"dimensionValues": [{"value": "page_view"}], "metricValues": [{"value": "9000"}]},
				{"dimensionValues": [{"value": "view_item"}], "metricValues": [{"value": "999"}]}
			],
			"totals": [{"metricValues": [{"value": "10000"}]}]
		}`))
	}))
	defer srv.Close()

	p, err := New(source.Config{Endpoint: srv.URL, APIKey: "tok", Extra: map[string]string{"start_date": "2026-01-01"}}, "123456")
	if err != nil {
		t.Fatal(err)
	}
	counts, total, err := p.Counts(context.Background(), model.PageInput{URL: "https://shop.example.com/product/1?x=y"})
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}

	want := []model.EventCount{{EventName: "page_view", Count: 9000}, {EventName: "view_item", Count: 999}}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
	if total != 10000 {
		t.Errorf("total = %d, want 10000", total)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if got.DimensionFilter.Filter.StringFilter.Value != "/product/1" {
		t.Errorf("filtered on %q, want /product/1", got.DimensionFilter.Filter.StringFilter.Value)
	}
	if got.DateRanges[0].StartDate != "2026-01-01" || got.DateRanges[0].EndDate != defaultEndDate {
		t.Errorf("date range = %+v", got.DateRanges[0])
	}
}

func TestCounts_TotalFallsBackToSum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows": [
			{"dimensionValues": [{"value": "a"}], "metricValues": [{"value": "3"}]},
			{"dimensionValues": [{"value": "b"}], "metricValues": [{"value": "4"}]}
		]}`))
	}))
	defer srv.Close()

	p, _ := New(source.Config{Endpoint: srv.URL}, "1")
	_, total, err := p.Counts(context.Background(), model.PageInput{Path: "/"})
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
}

func TestCounts_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
		w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer srv.Close()

	p, _ := New(source.Config{Endpoint: srv.URL, APIKey: "bad"}, "1")
	if _, _, err := p.Counts(context.Background(), model.PageInput{Path: "/"}); err == nil {
		t.Fatal("expected error for 403")
	}
	if _, err := New(source.Config{}, ""); err == nil {
		t.Fatal("expected error for missing property id")
	}
}

func TestCounts_BadMetric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows": [{"dimensionValues": [{"value": "a"}], "metricValues": [{"value": "many"}]}]}`))
	}))
	defer srv.Close()

	p, _ := New(source.Config{Endpoint: srv.URL}, "1")
	if _, _, err := p.Counts(context.Background(), model.PageInput{Path: "/"}); err == nil {
		t.Fatal("expected error for non-numeric count")
	}
}
