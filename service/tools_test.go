package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	result string
	query  string
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	s.query = query
	return s.result, nil
}

type stubPriceTooler struct {
	fetchResult string
	plotResult  string
	crop        string
}

func (s *stubPriceTooler) FetchPriceData(ctx context.Context, cropName string) string {
	s.crop = cropName
	return s.fetchResult
}

func (s *stubPriceTooler) PlotPriceChart(ctx context.Context, cropName string) string {
	s.crop = cropName
	return s.plotResult
}

func TestSearchReportsHandler(t *testing.T) {
	retriever := &stubRetriever{result: "Wheat stocks are high."}
	handler := searchReportsHandler(retriever)

	result, err := handler(context.Background(), []byte(`{"query":"wheat stocks"}`))
	require.NoError(t, err)
	assert.Equal(t, "Wheat stocks are high.", result)
	assert.Equal(t, "wheat stocks", retriever.query)
}

func TestSearchReportsHandlerNoResults(t *testing.T) {
	handler := searchReportsHandler(&stubRetriever{result: ""})

	result, err := handler(context.Background(), []byte(`{"query":"anything"}`))
	require.NoError(t, err)
	assert.Equal(t, "No relevant passages found in the indexed reports.", result)
}

func TestSearchReportsHandlerBadArgs(t *testing.T) {
	handler := searchReportsHandler(&stubRetriever{})

	_, err := handler(context.Background(), []byte(`not json`))
	require.Error(t, err)
}

func TestPriceHandlersPassCropName(t *testing.T) {
	prices := &stubPriceTooler{
		fetchResult: "Date        Price (EUR/tonne)",
		plotResult:  "Successfully generated and saved the price chart to 'data/charts/soft_wheat_price_chart.png'",
	}

	result, err := getPriceDataHandler(prices)(context.Background(), []byte(`{"crop_name":"barley"}`))
	require.NoError(t, err)
	assert.Equal(t, prices.fetchResult, result)
	assert.Equal(t, "barley", prices.crop)

	result, err = plotPriceChartHandler(prices)(context.Background(), []byte(`{"crop_name":"soft wheat"}`))
	require.NoError(t, err)
	assert.Equal(t, prices.plotResult, result)
	assert.Equal(t, "soft wheat", prices.crop)
}
