package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/agrintel/agri-intel-be/config"
	"github.com/agrintel/agri-intel-be/types"
	"github.com/agrintel/agri-intel-be/utils"
)

// chartFileName is fixed: every plot call overwrites the same file.
const chartFileName = "soft_wheat_price_chart.png"

const previewRows = 5

// browserHeaders mimics a regular browser; the data portal rejects bare
// client requests.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://agridata.ec.europa.eu/extensions/DataPortal/home.html",
}

// PriceService fetches weekly commodity prices from the EU Agri-food Data
// Portal. The upstream endpoint serves the cereal (soft wheat) series only;
// the crop name argument on the public methods is carried through to logs but
// does not change the request.
//
// Both public methods return human-readable strings, including on failure:
// they are tool handlers, and the agent observes their output as text.
type PriceService struct {
	baseURL   string
	beginDate string
	chartsDir string
	client    *http.Client
	now       func() time.Time
}

func NewPriceService(cfg config.PricesConfig) *PriceService {
	return &PriceService{
		baseURL:   cfg.BaseURL,
		beginDate: cfg.BeginDate,
		chartsDir: cfg.ChartsDir,
		client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

// FetchPriceData returns the tail of the cleaned weekly price series as a
// formatted table, or an error message.
func (s *PriceService) FetchPriceData(ctx context.Context, cropName string) string {
	log.Info().Str("crop", cropName).Msg("fetching price data")

	series, errMsg := s.fetchSeries(ctx)
	if errMsg != "" {
		return errMsg
	}

	log.Info().Int("points", len(series)).Msg("fetched price data")
	return formatSeriesTail(series, previewRows)
}

// PlotPriceChart fetches the series, renders a line chart, and returns a
// confirmation message holding the chart's path, or an error message.
func (s *PriceService) PlotPriceChart(ctx context.Context, cropName string) string {
	log.Info().Str("crop", cropName).Msg("plotting price chart")

	series, errMsg := s.fetchSeries(ctx)
	if errMsg != "" {
		return errMsg
	}

	path, err := s.renderChart(series)
	if err != nil {
		return fmt.Sprintf("An error occurred while generating the chart: %v", err)
	}

	log.Info().Str("path", path).Msg("chart saved")
	return fmt.Sprintf("Successfully generated and saved the price chart to '%s'", path)
}

// fetchSeries performs the upstream request and parse. On failure it returns
// an empty series and a non-empty message; network and data errors are
// deliberately flattened into prose for the calling model.
func (s *PriceService) fetchSeries(ctx context.Context) (types.PriceSeries, string) {
	url := fmt.Sprintf("%s?begin_date=%s&end_date=%s",
		s.baseURL, s.beginDate, s.now().Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Sprintf("Error fetching data from the API: %v", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Sprintf("Error fetching data from the API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Sprintf("Error fetching data from the API: unexpected status %s", resp.Status)
	}

	series, err := parsePriceCSV(resp.Body)
	if err != nil {
		return nil, fmt.Sprintf("An error occurred while processing the data: %v", err)
	}
	return series, ""
}

// parsePriceCSV reads the upstream CSV, keeping the Year, Week and PriceEUR
// columns. Malformed lines are skipped silently; rows that survive are sorted
// ascending by the date derived from their ISO week.
func parsePriceCSV(r io.Reader) (types.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	yearIdx, weekIdx, priceIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Year":
			yearIdx = i
		case "Week":
			weekIdx = i
		case "PriceEUR":
			priceIdx = i
		}
	}
	if yearIdx < 0 || weekIdx < 0 || priceIdx < 0 {
		return nil, fmt.Errorf("unexpected columns %v: need Year, Week and PriceEUR", header)
	}

	var series types.PriceSeries
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed lines, matching the tolerant upstream parse.
			// Anything that is not a parse error (a body read failing
			// mid-transfer) repeats on every Read and must abort.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("failed to read CSV data: %w", err)
		}
		maxIdx := yearIdx
		if weekIdx > maxIdx {
			maxIdx = weekIdx
		}
		if priceIdx > maxIdx {
			maxIdx = priceIdx
		}
		if len(record) <= maxIdx {
			continue
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[yearIdx]))
		if err != nil {
			continue
		}
		week, err := strconv.Atoi(strings.TrimSpace(record[weekIdx]))
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[priceIdx]), 64)
		if err != nil {
			continue
		}

		series = append(series, types.PricePoint{
			Year:  year,
			Week:  week,
			Date:  dateFromISOWeek(year, week),
			Price: price,
		})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series, nil
}

// dateFromISOWeek returns the Monday of the given ISO week.
func dateFromISOWeek(year, week int) time.Time {
	// January 4 is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := (int(jan4.Weekday()) + 6) % 7 // Monday = 0
	week1Monday := jan4.AddDate(0, 0, -weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// formatSeriesTail renders the last n points as an aligned text table.
func formatSeriesTail(series types.PriceSeries, n int) string {
	if len(series) == 0 {
		return "No price data available for the requested period."
	}
	start := len(series) - n
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	b.WriteString("Date        Price (EUR/tonne)\n")
	for _, p := range series[start:] {
		fmt.Fprintf(&b, "%s  %17.2f\n", p.Date.Format("2006-01-02"), p.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderChart writes the series as a line chart PNG at the fixed chart path,
// overwriting any previous chart.
func (s *PriceService) renderChart(series types.PriceSeries) (string, error) {
	if err := utils.EnsureDir(s.chartsDir); err != nil {
		return "", err
	}

	pts := make(plotter.XYs, len(series))
	for i, p := range series {
		pts[i].X = float64(p.Date.Unix())
		pts[i].Y = p.Price
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", fmt.Errorf("failed to build line plot: %w", err)
	}

	p := plot.New()
	p.Title.Text = "EU Soft Wheat Prices (2020-Present)"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price (EUR / tonne)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid(), line)

	path := filepath.Join(s.chartsDir, chartFileName)
	if err := p.Save(12*vg.Inch, 7*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save chart: %w", err)
	}
	return path, nil
}
