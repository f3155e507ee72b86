package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/phishspector/phishspector/internal/textutil"
)

// Client is an MLBackend implementation backed by Google Gemini.
type Client struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	modelName   string
	maxTextSize int
	logger      *zap.Logger
}

const promptFormat = `You are a phishing detection system. Analyze the following email text and rate how likely it is to be a phishing attempt.
Respond with a JSON object containing:
- risk_score: number between 0 and 100 (higher means more likely phishing)
- explanation: string (brief reason)

Email text:
%s

Respond only with the JSON object and nothing else.`

// NewClient creates a new Gemini classifier client.
func NewClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
) (*Client, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Client{
		client:      client,
		model:       model,
		modelName:   modelName,
		maxTextSize: maxTextSize,
		logger:      logger,
	}, nil
}

// Close closes the underlying API client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Predict returns a risk score in [0,100] for the given message text.
func (c *Client) Predict(ctx context.Context, text string) (float64, error) {
	prompt := fmt.Sprintf(promptFormat, textutil.Prepare(text, c.maxTextSize))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return 0, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return 0, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	score, err := parseRiskResponse(responseText)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("Gemini risk prediction",
		zap.Float64("score", score),
		zap.String("model", c.modelName))
	return score, nil
}
