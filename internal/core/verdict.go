package core

import (
	"encoding/json"
	"fmt"

	"github.com/mailsift/mailsift/internal/textutil"
)

// verdictResponse is the JSON shape every model provider is prompted
// to produce.
type verdictResponse struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// ParseVerdictResponse turns raw model output into a normalized
// verdict. Providers often wrap the JSON in prose or code fences, so
// a direct unmarshal failure falls back to extracting the first
// balanced object. Out-of-range confidence or a missing category is a
// malformed verdict, never a guess.
func ParseVerdictResponse(responseText, modelName string) (*Verdict, error) {
	var vr verdictResponse
	if err := json.Unmarshal([]byte(responseText), &vr); err != nil {
		jsonStr, ok := textutil.ExtractJSON(responseText)
		if !ok {
			return nil, fmt.Errorf("%w: no JSON object in model response", ErrMalformedVerdict)
		}
		if err := json.Unmarshal([]byte(jsonStr), &vr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
		}
	}

	if vr.Category == "" {
		return nil, fmt.Errorf("%w: missing category", ErrMalformedVerdict)
	}
	if vr.Confidence < 0 || vr.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrMalformedVerdict, vr.Confidence)
	}

	return &Verdict{
		Category:    ParseCategory(vr.Category),
		Confidence:  vr.Confidence,
		Explanation: vr.Explanation,
		ModelUsed:   modelName,
	}, nil
}
