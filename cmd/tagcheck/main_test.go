package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/tagcheck/internal/history"
	"github.com/hejijunhao/tagcheck/internal/model"
)

// execute runs the root command in-process. Flag values persist between
// calls, so tests pass every flag they depend on.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	t.Log(errOut.String())
	return out.String(), err
}

const pageFixture = `{
  "url": "https://shop.example.com/search?q=shoes",
  "events": [
    {
      "name": "view_search_results",
      "predicted": [
        {"name": "site_language", "value": "ko"},
        {"name": "search_result_count", "value": "24"},
        {"name": "search_term", "value": "shoes"}
      ],
      "actual": [
        {"name": "site_language", "value": "ko-KR"},
        {"name": "search_result_count", "value": 24},
        {"name": "search_term", "value": "boots"}
      ]
    }
  ]
}`

func writePages(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.json")
	require.NoError(t, os.WriteFile(path, []byte(pageFixture), 0o644))
	return path
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"PDP", "PDP"},
		{`"12"`, "12"},
		{"12.50", json.Number("12.50")},
		{"true", true},
		{"null", nil},
		{"135,000", "135,000"},
		{"12abc", "12abc"},
		{`{"a":1}`, `{"a":1}`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), "parseValue(%q)", tt.in)
	}
}

func TestParseCounts(t *testing.T) {
	got, err := parseCounts([]string{"page_view=90", "scroll=0"})
	require.NoError(t, err)
	assert.Equal(t, []model.EventCount{{EventName: "page_view", Count: 90}, {EventName: "scroll", Count: 0}}, got)

	for _, bad := range []string{"page_view", "=3", "x=-1", "x=abc"} {
		_, err := parseCounts([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestNormalizeCommand(t *testing.T) {
	out, err := execute(t, "normalize", "--json", "site_language", "ko-KR", "en_US")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first normalizeResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "ko", first.Normalized)
	assert.Equal(t, "locale", first.Rule)
	assert.Contains(t, lines[1], `"normalized":"en"`)
}

func TestCompareCommand(t *testing.T) {
	out, err := execute(t, "compare", "--tolerance", "0.01", "search_term", "shoes", "boots")
	require.NoError(t, err)

	var c struct {
		Match   bool          `json:"match"`
		Verdict model.Verdict `json:"verdict"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.False(t, c.Match)
	assert.Equal(t, model.VerdictMismatch, c.Verdict)

	out, err = execute(t, "compare", "--tolerance", "0.01", "site_language", "ko", "ko-KR")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.True(t, c.Match)
}

func TestCompareCommand_Args(t *testing.T) {
	_, err := execute(t, "compare", "only_one")
	assert.Error(t, err)
}

func TestSignificanceCommand(t *testing.T) {
	out, err := execute(t, "significance", "--total", "0", "--path", "/", "page_view=99990", "bot_ping=1", "add_to_cart=9")
	require.NoError(t, err)
	assert.Contains(t, out, "page_view")
	assert.Contains(t, out, string(model.SignificanceNoise))
	assert.Contains(t, out, string(model.SignificanceSignificant))
	assert.Less(t, strings.Index(out, "page_view"), strings.Index(out, "bot_ping"))
}

func TestVocabularyCommand(t *testing.T) {
	out, err := execute(t, "vocabulary")
	require.NoError(t, err)
	assert.Contains(t, out, "site_language")
	assert.Contains(t, out, "url_patterns:")
}

func TestValidateCommand_JSONWithHistory(t *testing.T) {
	pages := writePages(t)
	histPath := filepath.Join(t.TempDir(), "history.json")

	args := []string{"validate",
		"--pages", pages, "--format", "json", "--output", "", "--verbosity", "minimal",
		"--workers", "2", "--history", "file", "--history-dsn", histPath,
	}
	out, err := execute(t, args...)
	require.NoError(t, err)

	var report model.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.TotalParams)
	assert.Equal(t, 2, report.MatchedParams)
	assert.Empty(t, report.EventResults)

	doc, err := history.NewFileStore(histPath).Load(t.Context())
	require.NoError(t, err)
	assert.Len(t, doc.History, 1)
	assert.Equal(t, 3, doc.History[0].TotalParams)

	_, err = execute(t, args...)
	require.NoError(t, err)
	out, err = execute(t, "history", "--history", "file", "--history-dsn", histPath, "--runs", "5", "--confirmed=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Runs")
}

func TestValidateCommand_MarkdownFile(t *testing.T) {
	pages := writePages(t)
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.md")

	_, err := execute(t, "validate",
		"--pages", pages, "--format", "markdown", "--output", reportPath, "--verbosity", "standard",
		"--workers", "1", "--history", "file", "--history-dsn", filepath.Join(dir, "h.json"),
	)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Summary")
	assert.Contains(t, string(data), "search_term")
}

func TestValidateCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "validate", "--pages", writePages(t), "--format", "pdf", "--output", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output format")
}

func TestProvidersCloseJoinsErrors(t *testing.T) {
	errA := errors.New("analytics close")
	errB := errors.New("browser close")
	calls := 0
	p := &providers{closers: []func() error{
		func() error { calls++; return errA },
		func() error { calls++; return nil },
		func() error { calls++; return errB },
	}}
	err := p.Close()
	assert.Equal(t, 3, calls, "every closer runs")
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestCloseIntoKeepsBothErrors(t *testing.T) {
	runErr := errors.New("run failed")
	closeErr := errors.New("close failed")

	run := func(fail bool, closeFn func() error) (err error) {
		defer closeInto(&err, closeFn)
		if fail {
			return runErr
		}
		return nil
	}

	err := run(true, func() error { return closeErr })
	assert.ErrorIs(t, err, runErr)
	assert.ErrorIs(t, err, closeErr)

	err = run(false, func() error { return closeErr })
	assert.ErrorIs(t, err, closeErr)

	assert.NoError(t, run(false, func() error { return nil }))
}
