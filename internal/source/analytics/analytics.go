// Package analytics fetches per-page event counts from a GA4-style reporting
// endpoint ("runReport" with an eventName dimension and an eventCount metric).
package analytics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hejijunhao/tagcheck/internal/engine"
	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/source"
	"github.com/hejijunhao/tagcheck/internal/source/httpclient"
)

const (
	defaultEndpoint  = "https://analyticsdata.googleapis.com"
	defaultStartDate = "28daysAgo"
	defaultEndDate   = "yesterday"
)

// Provider implements source.CountProvider.
type Provider struct {
	client     *httpclient.Client
	propertyID string
	startDate  string
	endDate    string
}

var _ source.CountProvider = (*Provider)(nil)

// New creates a Provider for the analytics property. Extra keys start_date
// and end_date override the reporting window.
func New(cfg source.Config, propertyID string, opts ...httpclient.Option) (*Provider, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("analytics: missing property id")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	p := &Provider{
		client:     httpclient.New(endpoint, cfg.APIKey, opts...),
		propertyID: propertyID,
		startDate:  defaultStartDate,
		endDate:    defaultEndDate,
	}
	if v := cfg.Extra["start_date"]; v != "" {
		p.startDate = v
	}
	if v := cfg.Extra["end_date"]; v != "" {
		p.endDate = v
	}
	return p, nil
}

// Request and response types (unexported).

type reportRequest struct {
	DateRanges         []dateRange `json:"dateRanges"`
	Dimensions         []named     `json:"dimensions"`
	Metrics            []named     `json:"metrics"`
	DimensionFilter    filterExpr  `json:"dimensionFilter"`
	MetricAggregations []string    `json:"metricAggregations"`
	Limit              int         `json:"limit,omitempty"`
}

type dateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type named struct {
	Name string `json:"name"`
}

type filterExpr struct {
	Filter fieldFilter `json:"filter"`
}

type fieldFilter struct {
	FieldName    string       `json:"fieldName"`
	StringFilter stringFilter `json:"stringFilter"`
}

type stringFilter struct {
	MatchType string `json:"matchType"`
	Value     string `json:"value"`
}

type reportResponse struct {
	Rows   []row `json:"rows"`
	Totals []row `json:"totals"`
}

type row struct {
	DimensionValues []value `json:"dimensionValues"`
	MetricValues    []value `json:"metricValues"`
}

type value struct {
	Value string `json:"value"`
}

// Counts reports event counts for the page path. The total is the report's
// TOTAL aggregation when present, else the sum of the rows.
func (p *Provider) Counts(ctx context.Context, page model.PageInput) ([]model.EventCount, int64, error) {
	path := engine.PagePath(page)
	req := reportRequest{
		DateRanges: []dateRange{{StartDate: p.startDate, EndDate: p.endDate}},
		Dimensions: []named{{Name: "eventName"}},
		Metrics:    []named{{Name: "eventCount"}},
		DimensionFilter: filterExpr{Filter: fieldFilter{
			FieldName:    "pagePath",
			StringFilter: stringFilter{MatchType: "EXACT", Value: path},
		}},
		MetricAggregations: []string{"TOTAL"},
	}

	var resp reportResponse
	if err := p.client.PostJSON(ctx, "/v1beta/properties/"+p.propertyID+":runReport", req, &resp); err != nil {
		return nil, 0, fmt.Errorf("analytics: %s: %w", path, err)
	}

	counts := make([]model.EventCount, 0, len(resp.Rows))
	var sum int64
	for _, r := range resp.Rows {
		if len(r.DimensionValues) == 0 || len(r.MetricValues) == 0 {
			continue
		}
		n, err := strconv.ParseInt(r.MetricValues[0].Value, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("analytics: %s: event count %q: %w", path, r.MetricValues[0].Value, err)
		}
		counts = append(counts, model.EventCount{EventName: r.DimensionValues[0].Value, Count: n})
		sum += n
	}

	total := sum
	if len(resp.Totals) > 0 && len(resp.Totals[0].MetricValues) > 0 {
		if n, err := strconv.ParseInt(resp.Totals[0].MetricValues[0].Value, 10, 64); err == nil && n >= sum {
			total = n
		}
	}
	return counts, total, nil
}
