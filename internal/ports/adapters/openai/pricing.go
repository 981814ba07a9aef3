package openai

import "strings"

// Pricing estimates call cost ahead of reservation and converts reported
// usage into dollars afterwards.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
	// MaxResponseTokens bounds the response for cost control and feeds the
	// pre-call estimate.
	MaxResponseTokens int
}

// DefaultPricing matches gpt-4o-mini class pricing.
func DefaultPricing() Pricing {
	return Pricing{
		InputPer1K:        0.0015,
		OutputPer1K:       0.002,
		MaxResponseTokens: 1000,
	}
}

// Overhead of the fixed prompt framing around the transcript.
const promptOverheadTokens = 350

// EstimateTokens predicts total token volume for one analysis call: roughly
// 4/3 tokens per transcript word, plus the prompt framing, plus a full
// response at the configured cap.
func (p Pricing) EstimateTokens(transcript string) int {
	words := len(strings.Fields(transcript))
	return words*4/3 + promptOverheadTokens + p.MaxResponseTokens
}

// EstimateCost prices a token volume assuming a 70/30 input/output split.
func (p Pricing) EstimateCost(tokens int) float64 {
	inputTokens := float64(tokens) * 0.7
	outputTokens := float64(tokens) * 0.3
	return inputTokens/1000*p.InputPer1K + outputTokens/1000*p.OutputPer1K
}

// UsageCost prices exact usage reported by the API.
func (p Pricing) UsageCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*p.InputPer1K + float64(completionTokens)/1000*p.OutputPer1K
}
