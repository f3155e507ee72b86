package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/textutil"
)

// Client is an MLBackend implementation backed by the OpenAI chat API.
type Client struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	maxTextSize int
	logger      *zap.Logger
}

// riskResponse is the structured response requested from the model.
type riskResponse struct {
	RiskScore   float64 `json:"risk_score"`
	Explanation string  `json:"explanation"`
}

const promptFormat = `You are a phishing detection system. Analyze the following email text and rate how likely it is to be a phishing attempt.
Respond with a JSON object containing:
- risk_score: number between 0 and 100 (higher means more likely phishing)
- explanation: string (brief reason)

Email text:
%s

Respond only with the JSON object and nothing else.`

// NewClient creates a new OpenAI classifier client.
func NewClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		maxTextSize: maxTextSize,
		logger:      logger,
	}
}

// Predict returns a risk score in [0,100] for the given message text.
func (c *Client) Predict(ctx context.Context, text string) (float64, error) {
	prompt := fmt.Sprintf(promptFormat, textutil.Prepare(text, c.maxTextSize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("empty response from OpenAI")
	}

	score, err := parseRiskResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("OpenAI risk prediction",
		zap.Float64("score", score),
		zap.String("model", c.modelName))
	return score, nil
}

// parseRiskResponse decodes the model output, tolerating prose around the
// JSON object.
func parseRiskResponse(responseText string) (float64, error) {
	var parsed riskResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart, jsonEnd := -1, -1
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}
		if jsonStart < 0 || jsonStart >= jsonEnd {
			return 0, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &parsed); err != nil {
			return 0, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}

	score := parsed.RiskScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}
