package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/pkg/config"
	"github.com/wonny/patternscan/pkg/redis"
)

func sampleReport() *contracts.Report {
	return &contracts.Report{
		RunID:        "7b0c4d0e-2f7d-4d0b-9a57-3f3f3e0f6a11",
		Strategy:     "breakout_pullback",
		StrategyName: "Breakout Pullback",
		GeneratedAt:  time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC),
		TotalScanned: 5100,
		Hits: []contracts.Hit{
			{Code: "600000", Name: "浦发银行", FullCode: "sh.600000", Price: 10.12, Change: "5.0%",
				Stage: contracts.StageBreakoutCritical, Concepts: "Banking / Shanghai FTZ"},
			{Code: "000001", Name: "平安银行", FullCode: "sz.000001", Price: 11.5, Change: "-1.23%",
				Stage: contracts.StageBuilding, Concepts: "unclassified"},
		},
	}
}

func TestRendererFor(t *testing.T) {
	for _, f := range []string{"", FormatText, FormatJSON, FormatHTML} {
		_, err := RendererFor(f)
		assert.NoError(t, err, f)
	}
	_, err := RendererFor("xlsx")
	assert.Error(t, err)
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "Breakout Pullback (breakout_pullback)  scanned: 5100  hits: 2")
	assert.Contains(t, out, "Breakout-Critical")
	assert.Contains(t, out, "codes: 600000,000001")
	assert.Less(t, strings.Index(out, "600000"), strings.Index(out, "000001"))
}

func TestRenderText_NoHits(t *testing.T) {
	r := sampleReport()
	r.Hits = nil
	r.Partial = true

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, r))
	assert.Contains(t, buf.String(), "no matches")
	assert.Contains(t, buf.String(), "partial")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, sampleReport()))

	var got struct {
		Success bool `json:"success"`
		Data    struct {
			StrategyName        string                   `json:"strategyName"`
			StrategyDisplayName string                   `json:"strategyDisplayName"`
			TotalScanned        int                      `json:"totalScanned"`
			TotalHit            int                      `json:"totalHit"`
			Results             []map[string]interface{} `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.True(t, got.Success)
	assert.Equal(t, "breakout_pullback", got.Data.StrategyName)
	assert.Equal(t, "Breakout Pullback", got.Data.StrategyDisplayName)
	assert.Equal(t, 5100, got.Data.TotalScanned)
	assert.Equal(t, 2, got.Data.TotalHit)

	first := got.Data.Results[0]
	assert.Equal(t, "600000", first["code"])
	assert.Equal(t, "sh.600000", first["fullCode"])
	assert.Equal(t, "5.0%", first["change"])
	assert.Equal(t, "Breakout-Critical", first["stage"])
	assert.Equal(t, "Banking / Shanghai FTZ", first["concepts"])
}

func TestRenderJSON_EmptyResultsIsArray(t *testing.T) {
	r := sampleReport()
	r.Hits = nil

	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, r))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, sampleReport()))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, "600000,000001", doc.Find("#codes").Text())

	rows := doc.Find("tr.stock-row")
	require.Equal(t, 2, rows.Length())

	first := rows.First()
	stage, _ := first.Attr("data-stage")
	assert.Equal(t, "Breakout-Critical", stage)
	assert.Equal(t, 2, first.Find(".concept-tag").Length())
	assert.Equal(t, "up", first.Find("td").Eq(4).AttrOr("class", ""))

	href, _ := first.Find("a").Attr("href")
	assert.Equal(t, "https://quote.eastmoney.com/concept/sh600000.html", href)

	second := rows.Eq(1)
	assert.Equal(t, "down", second.Find("td").Eq(4).AttrOr("class", ""))
	assert.Equal(t, "https://quote.eastmoney.com/concept/sz000001.html", second.Find("a").AttrOr("href", ""))
}

func TestRenderHTML_EscapesText(t *testing.T) {
	r := sampleReport()
	r.Hits[0].Name = "<script>alert(1)</script>"

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, r))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scan_report.html")
	s := NewFile(path, RenderHTML)

	require.NoError(t, s.Write(context.Background(), sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Breakout Pullback")
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileSink_FailureRemovesTemp(t *testing.T) {
	// a non-empty directory in place of the report makes the rename fail
	path := filepath.Join(t.TempDir(), "scan_report.html")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "keep"), 0o755))

	err := NewFile(path, RenderHTML).Write(context.Background(), sampleReport())
	require.Error(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStrategyFileSink(t *testing.T) {
	dir := t.TempDir()
	s := NewStrategyFile(filepath.Join(dir, "scan_report.html"), RenderHTML)

	r := sampleReport()
	require.NoError(t, s.Write(context.Background(), r))

	want := filepath.Join(dir, "scan_report_breakout_pullback.html")
	assert.Equal(t, want, s.Path(r))
	_, err := os.Stat(want)
	assert.NoError(t, err)
}

func TestStrategyPath(t *testing.T) {
	assert.Equal(t, "out/report_ma5.json", StrategyPath("out/report.json", "ma5"))
	assert.Equal(t, "report_ma5", StrategyPath("report", "ma5"))
}

type failingSink struct{}

func (failingSink) Write(ctx context.Context, r *contracts.Report) error {
	return errors.New("disk full")
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	m := Multi{failingSink{}, NewWriter(&buf, RenderText)}

	err := m.Write(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, buf.String(), "600000", "later sinks still run")

	assert.NoError(t, Multi{}.Write(context.Background(), sampleReport()))
}

func TestCacheSink_Disabled(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	s := NewCache(redis.NewCache(client, "patternscan"), 0)
	require.NoError(t, s.Write(context.Background(), sampleReport()))

	calls := 0
	scan := func() (*contracts.Report, error) {
		calls++
		return sampleReport(), nil
	}
	for i := 0; i < 2; i++ {
		r, err := s.LatestOrScan(context.Background(), "breakout_pullback", scan)
		require.NoError(t, err)
		assert.Equal(t, "breakout_pullback", r.Strategy)
	}
	assert.Equal(t, 2, calls, "nothing is cached while redis is disabled")
}

func TestCacheSink_LatestOrScanPassesThrough(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)
	s := NewCache(redis.NewCache(client, "patternscan"), 0)

	partial := sampleReport()
	partial.Partial = true
	r, err := s.LatestOrScan(context.Background(), partial.Strategy, func() (*contracts.Report, error) {
		return partial, nil
	})
	require.NoError(t, err)
	assert.True(t, r.Partial)

	_, err = s.LatestOrScan(context.Background(), partial.Strategy, func() (*contracts.Report, error) {
		return nil, errors.New("archive offline")
	})
	assert.EqualError(t, err, "archive offline")
}

func TestQuoteURL(t *testing.T) {
	assert.Equal(t, "https://quote.eastmoney.com/concept/sz300750.html",
		QuoteURL(contracts.Hit{Code: "300750", FullCode: "sz.300750"}))
	assert.Equal(t, "https://quote.eastmoney.com/concept/sz830799.html",
		QuoteURL(contracts.Hit{Code: "830799", FullCode: "bj.830799"}))
}
