// Package browser collects the values a live page actually pushes to
// window.dataLayer, using headless Chrome.
package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/source"
)

const dataLayerJS = `(window.dataLayer || []).map(function (e) {
	if (e && typeof e === "object" && !Array.isArray(e) && typeof e.length === "number") {
		return Array.prototype.slice.call(e);
	}
	return e;
})`

// Provider implements source.ActualProvider. It owns one browser process;
// call Close when done.
type Provider struct {
	allocCtx     context.Context
	allocCancel  context.CancelFunc
	timeout      time.Duration
	waitSelector string
}

var _ source.ActualProvider = (*Provider)(nil)

// New starts a headless Chrome allocator. Extra keys: chrome_path,
// wait_selector.
func New(ctx context.Context, cfg source.Config, timeout time.Duration) *Provider {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if path := cfg.Extra["chrome_path"]; path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &Provider{
		allocCtx:     allocCtx,
		allocCancel:  cancel,
		timeout:      timeout,
		waitSelector: cfg.Extra["wait_selector"],
	}
}

// Actual loads page.URL in a fresh tab and reads its dataLayer.
func (p *Provider) Actual(ctx context.Context, page model.PageInput) (map[string][]model.ParameterValue, error) {
	tabCtx, cancel := chromedp.NewContext(p.allocCtx)
	defer cancel()
	if p.timeout > 0 {
		tabCtx, cancel = context.WithTimeout(tabCtx, p.timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	selector := p.waitSelector
	if selector == "" {
		selector = "body"
	}
	var entries []any
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(page.URL),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(dataLayerJS, &entries),
	)
	if err != nil {
		return nil, fmt.Errorf("browser: %s: %w", page.URL, err)
	}
	return ParseDataLayer(entries), nil
}

// Close stops the browser.
func (p *Provider) Close() error {
	p.allocCancel()
	return nil
}

// ParseDataLayer extracts event parameters from dataLayer pushes. Both the
// GTM form {event: name, ...params} and the gtag form ["event", name, params]
// are understood. Nested objects are flattened with dots except the
// ecommerce object, whose scalar fields are lifted to the top level. The
// first push of an event wins.
func ParseDataLayer(entries []any) map[string][]model.ParameterValue {
	out := make(map[string][]model.ParameterValue)
	for _, e := range entries {
		name, params := parseEntry(e)
		if name == "" || strings.HasPrefix(name, "gtm.") {
			continue
		}
		if _, dup := out[name]; dup {
			continue
		}
		flat := make(map[string]any)
		flatten("", params, flat)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]model.ParameterValue, 0, len(keys))
		for _, k := range keys {
			vals = append(vals, model.ParameterValue{Name: k, Raw: flat[k]})
		}
		out[name] = vals
	}
	return out
}

func parseEntry(e any) (string, map[string]any) {
	switch v := e.(type) {
	case map[string]any:
		name, _ := v["event"].(string)
		params := make(map[string]any, len(v))
		for k, val := range v {
			if k != "event" && !strings.HasPrefix(k, "gtm.") {
				params[k] = val
			}
		}
		return name, params
	case []any:
		if len(v) < 2 {
			return "", nil
		}
		if cmd, _ := v[0].(string); cmd != "event" {
			return "", nil
		}
		name, _ := v[1].(string)
		var params map[string]any
		if len(v) > 2 {
			params, _ = v[2].(map[string]any)
		}
		return name, params
	}
	return "", nil
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if prefix == "" && k == "ecommerce" {
				flatten("", val, out)
			} else {
				flatten(key, val, out)
			}
		case []any:
			// Item arrays are not single parameters.
		default:
			if _, exists := out[key]; !exists {
				out[key] = val
			}
		}
	}
}
