package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/agrintel/agri-intel-be/types"
)

const (
	toolSearchReports  = "search_agri_reports"
	toolGetPriceData   = "get_crop_price_data"
	toolPlotPriceChart = "plot_crop_price_chart"

	searchReportsDescription  = "Search the indexed agricultural market reports for passages relevant to a query. Use this for questions about market conditions, yields, stocks or report contents."
	getPriceDataDescription   = "Fetch recent weekly price observations for a crop and return them as a small table. Use this for questions about current or recent prices."
	plotPriceChartDescription = "Generate a price history chart image for a crop and save it to disk. Use this when the user asks for a chart or plot."
)

type searchReportsArgs struct {
	Query string `json:"query"`
}

type cropArgs struct {
	CropName string `json:"crop_name"`
}

// Retriever is the slice of RAGService the search tool needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// PriceTooler is the slice of PriceService the price tools need. Both methods
// report failures in their return string so the model can react to them.
type PriceTooler interface {
	FetchPriceData(ctx context.Context, cropName string) string
	PlotPriceChart(ctx context.Context, cropName string) string
}

func searchReportsHandler(retriever Retriever) types.FunctionHandler {
	return func(ctx context.Context, args []byte) (any, error) {
		var parsed searchReportsArgs
		if err := json.Unmarshal(args, &parsed); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", toolSearchReports, err)
		}
		text, err := retriever.Retrieve(ctx, parsed.Query)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return "No relevant passages found in the indexed reports.", nil
		}
		return text, nil
	}
}

func getPriceDataHandler(prices PriceTooler) types.FunctionHandler {
	return func(ctx context.Context, args []byte) (any, error) {
		var parsed cropArgs
		if err := json.Unmarshal(args, &parsed); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", toolGetPriceData, err)
		}
		return prices.FetchPriceData(ctx, parsed.CropName), nil
	}
}

func plotPriceChartHandler(prices PriceTooler) types.FunctionHandler {
	return func(ctx context.Context, args []byte) (any, error) {
		var parsed cropArgs
		if err := json.Unmarshal(args, &parsed); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", toolPlotPriceChart, err)
		}
		return prices.PlotPriceChart(ctx, parsed.CropName), nil
	}
}

// RegisterAgriTools wires the retrieval and price tools into an OpenAI
// compatible model.
func RegisterAgriTools(ai *OpenAIService, retriever Retriever, prices PriceTooler) {
	ai.RegisterFunctionCall(
		toolSearchReports,
		searchReportsDescription,
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "What to look for in the reports",
				},
			},
			Required: []string{"query"},
		},
		searchReportsHandler(retriever),
	)
	ai.RegisterFunctionCall(
		toolGetPriceData,
		getPriceDataDescription,
		cropNameSchema(),
		getPriceDataHandler(prices),
	)
	ai.RegisterFunctionCall(
		toolPlotPriceChart,
		plotPriceChartDescription,
		cropNameSchema(),
		plotPriceChartHandler(prices),
	)
}

func cropNameSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"crop_name": {
				Type:        jsonschema.String,
				Description: "Name of the crop, e.g. 'soft wheat'",
			},
		},
		Required: []string{"crop_name"},
	}
}

// RegisterGeminiAgriTools wires the same tools into a Gemini model.
func RegisterGeminiAgriTools(ai *GeminiService, retriever Retriever, prices PriceTooler) {
	ai.RegisterFunction(
		toolSearchReports,
		searchReportsDescription,
		map[string]*genai.Schema{
			"query": {
				Type:        genai.TypeString,
				Description: "What to look for in the reports",
			},
		},
		searchReportsHandler(retriever),
	)
	ai.RegisterFunction(
		toolGetPriceData,
		getPriceDataDescription,
		geminiCropNameSchema(),
		getPriceDataHandler(prices),
	)
	ai.RegisterFunction(
		toolPlotPriceChart,
		plotPriceChartDescription,
		geminiCropNameSchema(),
		plotPriceChartHandler(prices),
	)
}

func geminiCropNameSchema() map[string]*genai.Schema {
	return map[string]*genai.Schema{
		"crop_name": {
			Type:        genai.TypeString,
			Description: "Name of the crop, e.g. 'soft wheat'",
		},
	}
}
