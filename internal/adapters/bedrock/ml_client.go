package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/textutil"
)

// Client is an MLBackend implementation backed by Amazon Bedrock.
type Client struct {
	client      *bedrockruntime.Client
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	maxTextSize int
	logger      *zap.Logger
}

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

// NewClient creates a Bedrock classifier client using the default AWS
// credential chain.
func NewClient(
	region string,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Client{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		maxTextSize: maxTextSize,
		logger:      logger,
	}, nil
}

func (c *Client) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

// Predict returns a risk score in [0,100] for the given message text.
func (c *Client) Predict(ctx context.Context, text string) (float64, error) {
	prompt := fmt.Sprintf(promptFormat, textutil.Prepare(text, c.maxTextSize))

	var payload []byte
	var err error
	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := c.extractText(resp.Body)
	if err != nil {
		return 0, err
	}

	score, err := parseRiskResponse(responseText)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("Bedrock risk prediction",
		zap.Float64("score", score),
		zap.String("model", c.modelID))
	return score, nil
}

func (c *Client) extractText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	for _, candidate := range []string{genericResp.Output, genericResp.Text, genericResp.Response} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no usable text field in model response")
}

// parseRiskResponse decodes model output, tolerating prose around the JSON
// object.
func parseRiskResponse(responseText string) (float64, error) {
	var parsed riskResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.IndexByte(responseText, '{')
		jsonEnd := strings.LastIndexByte(responseText, '}') + 1
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
