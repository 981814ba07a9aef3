// Package openai is the AI analysis collaborator adapter: one chat
// completion call per segment, strict schema validation at the boundary.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fifteenfame/viralcut/internal/analyzer"
	"github.com/fifteenfame/viralcut/internal/ports"
	"github.com/fifteenfame/viralcut/internal/types"
)

const defaultRequestTimeout = 15 * time.Second

type Adapter struct {
	key     string
	model   string
	baseURL string
	timeout time.Duration
	pricing Pricing
	client  *http.Client
}

func New(apiKey, model, baseURL string, timeout time.Duration, pricing Pricing) *Adapter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		timeout: timeout,
		pricing: pricing,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *Adapter) Pricing() Pricing { return a.pricing }

// analysisResponse is the strict response schema. Pointer fields distinguish
// a missing dimension from a zero score; any missing field is a schema
// violation handled as AIUnavailable by the caller.
type analysisResponse struct {
	ViralScore         *float64 `json:"viral_score"`
	EmotionalIntensity *float64 `json:"emotional_intensity"`
	ControversyLevel   *float64 `json:"controversy_level"`
	Relatability       *float64 `json:"relatability"`
	EducationalValue   *float64 `json:"educational_value"`
	Entertainment      *float64 `json:"entertainment_factor"`
	ViralReasoning     string   `json:"viral_reasoning"`
	ClipTitle          string   `json:"clip_title"`
	SuggestedCaption   string   `json:"suggested_caption"`
}

func (a *Adapter) Analyze(ctx context.Context, transcript string, hints ports.AnalysisHints) (types.Analysis, error) {
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "system", "content": "You are a viral content analyst. Provide only JSON responses."},
			{"role": "user", "content": buildPrompt(transcript, hints)},
		},
		"max_tokens":  a.pricing.MaxResponseTokens,
		"temperature": 0.3,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name": "viral_analysis",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"viral_score":          map[string]any{"type": "number"},
						"emotional_intensity":  map[string]any{"type": "number"},
						"controversy_level":    map[string]any{"type": "number"},
						"relatability":         map[string]any{"type": "number"},
						"educational_value":    map[string]any{"type": "number"},
						"entertainment_factor": map[string]any{"type": "number"},
						"viral_reasoning":      map[string]any{"type": "string"},
						"clip_title":           map[string]any{"type": "string"},
						"suggested_caption":    map[string]any{"type": "string"},
					},
					"required": []string{
						"viral_score", "emotional_intensity", "controversy_level",
						"relatability", "educational_value", "entertainment_factor",
						"viral_reasoning", "clip_title", "suggested_caption",
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", a.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return types.Analysis{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return types.Analysis{}, analyzer.Transient(fmt.Errorf("analysis timeout after %s (model=%s)", a.timeout, a.model))
		}
		return types.Analysis{}, analyzer.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			rb = nil
		}
		statusErr := fmt.Errorf("analysis status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return types.Analysis{}, analyzer.Transient(statusErr)
		}
		return types.Analysis{}, statusErr
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.Analysis{}, fmt.Errorf("decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return types.Analysis{}, errors.New("analysis response has no choices")
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return types.Analysis{}, err
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.Analysis{}, err
	}

	var out analysisResponse
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return types.Analysis{}, fmt.Errorf("parse analysis json: %w", err)
	}
	if err := out.validate(); err != nil {
		return types.Analysis{}, err
	}

	tokens := raw.Usage.TotalTokens
	var cost float64
	if tokens > 0 {
		cost = a.pricing.UsageCost(raw.Usage.PromptTokens, raw.Usage.CompletionTokens)
	} else {
		// Some gateways omit usage; estimate from word counts like the
		// reservation did.
		tokens = len(strings.Fields(transcript)) + len(strings.Fields(content)) + promptOverheadTokens
		cost = a.pricing.EstimateCost(tokens)
	}

	return types.Analysis{
		Scores: types.AIScores{
			ViralPotential:     *out.ViralScore,
			EmotionalIntensity: *out.EmotionalIntensity,
			Controversy:        *out.ControversyLevel,
			Relatability:       *out.Relatability,
			EducationalValue:   *out.EducationalValue,
			Entertainment:      *out.Entertainment,
		},
		Reasoning: strings.TrimSpace(out.ViralReasoning),
		Title:     strings.TrimSpace(out.ClipTitle),
		Caption:   strings.TrimSpace(out.SuggestedCaption),
		Tokens:    tokens,
		Cost:      cost,
	}, nil
}

func (r analysisResponse) validate() error {
	missing := []string{}
	for name, p := range map[string]*float64{
		"viral_score":          r.ViralScore,
		"emotional_intensity":  r.EmotionalIntensity,
		"controversy_level":    r.ControversyLevel,
		"relatability":         r.Relatability,
		"educational_value":    r.EducationalValue,
		"entertainment_factor": r.Entertainment,
	} {
		if p == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("analysis schema violation: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func buildPrompt(transcript string, hints ports.AnalysisHints) string {
	var b strings.Builder
	b.WriteString("Analyze the following transcript segment for viral potential. ")
	b.WriteString("Return strictly valid JSON (no markdown, no code fences) matching the provided schema, ")
	b.WriteString("scoring every dimension from 0 to 10.\n\n")
	fmt.Fprintf(&b, "TRANSCRIPT: %q\n", transcript)
	if hints.EndSec > hints.StartSec {
		fmt.Fprintf(&b, "DURATION: %.1f seconds (%.1fs-%.1fs)\n", hints.EndSec-hints.StartSec, hints.StartSec, hints.EndSec)
	}
	if len(hints.Features) > 0 {
		fb, err := json.Marshal(hints.Features)
		if err == nil {
			fmt.Fprintf(&b, "AUDIO SIGNALS (0-10): %s\n", fb)
		}
	}
	b.WriteString("\nKeep viral_reasoning under 200 words. clip_title under 60 characters. ")
	b.WriteString("suggested_caption under 200 characters with 2-3 hashtags.")
	return b.String()
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("analysis response: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("analysis response: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("analysis response: empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("analysis response: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
