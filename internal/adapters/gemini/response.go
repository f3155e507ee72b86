package gemini

import (
	"encoding/json"
	"fmt"
)

type riskResponse struct {
	RiskScore   float64 `json:"risk_score"`
	Explanation string  `json:"explanation"`
}

// parseRiskResponse decodes model output, tolerating markdown fences or
// prose around the JSON object.
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
