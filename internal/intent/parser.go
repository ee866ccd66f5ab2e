package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/pkg/logger"
)

// Parser turns a free-text financial goal into a structured intent.
// The language model behind the LLM parser is an external collaborator;
// its allocation is validated here before anything downstream sees it.
type Parser interface {
	Parse(ctx context.Context, text string) (*model.ParsedIntent, error)
}

// NewParser returns the LLM-backed parser when an endpoint is
// configured, otherwise the keyword preset fallback.
func NewParser(cfg config.IntentConfig) Parser {
	if cfg.BaseURL != "" && cfg.APIKey != "" {
		return NewLLMParser(cfg)
	}
	logger.Warn("intent parser endpoint not configured, using presets")
	return &PresetParser{}
}

const systemPrompt = `You convert a user's financial goal into JSON:
{"amount": number, "risk_level": "conservative|balanced|aggressive",
"allocation": {"stable": n, "liquid": n, "growth": n},
"execution_type": "once|daily|weekly|monthly", "monitoring": bool,
"explanation": string}. Allocation percentages must sum to 100.
Respond with JSON only.`

// LLMParser calls an OpenAI-compatible completion endpoint.
type LLMParser struct {
	client *resty.Client
	model  string
}

func NewLLMParser(cfg config.IntentConfig) *LLMParser {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(time.Duration(cfg.TimeoutMs) * time.Millisecond).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	return &LLMParser{client: client, model: cfg.Model}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *LLMParser) Parse(ctx context.Context, text string) (*model.ParsedIntent, error) {
	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": text},
		},
		"temperature": 0,
	}

	var out chatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "intent parser unavailable", err)
	}
	if resp.IsError() {
		return nil, apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("intent parser returned %d", resp.StatusCode()), nil)
	}
	if len(out.Choices) == 0 {
		return nil, apperrors.New(apperrors.ErrUpstream, "intent parser returned no choices", nil)
	}

	var parsed model.ParsedIntent
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "intent parser returned malformed JSON", err)
	}

	if !parsed.Allocation.Valid() {
		return nil, apperrors.NewInvalidAllocation(
			fmt.Sprintf("parsed allocation sums to %.1f, expected 100", parsed.Allocation.Sum()))
	}
	parsed.ExecutionType = model.ParseExecutionType(string(parsed.ExecutionType))

	return &parsed, nil
}

var amountPattern = regexp.MustCompile(`\$?(\d+(?:,\d{3})*(?:\.\d+)?)`)

// PresetParser maps risk keywords onto fixed allocations. It keeps the
// service usable without an LLM endpoint.
type PresetParser struct{}

func (p *PresetParser) Parse(_ context.Context, text string) (*model.ParsedIntent, error) {
	lower := strings.ToLower(text)

	parsed := &model.ParsedIntent{
		RiskLevel:     "balanced",
		Allocation:    model.Allocation{Stable: 40, Liquid: 40, Growth: 20},
		ExecutionType: model.ExecutionOnce,
		Explanation:   "Balanced preset: diversified across stable, liquid and growth buckets.",
	}

	switch {
	case containsAny(lower, "safe", "conservative", "protect", "preserve"):
		parsed.RiskLevel = "conservative"
		parsed.Allocation = model.Allocation{Stable: 70, Liquid: 20, Growth: 10}
		parsed.Explanation = "Conservative preset: capital preservation first."
	case containsAny(lower, "aggressive", "growth", "yield", "maximize"):
		parsed.RiskLevel = "aggressive"
		parsed.Allocation = model.Allocation{Stable: 20, Liquid: 30, Growth: 50}
		parsed.Explanation = "Aggressive preset: growth-weighted with cross-chain exposure."
	}

	switch {
	case strings.Contains(lower, "daily"), strings.Contains(lower, "every day"):
		parsed.ExecutionType = model.ExecutionDaily
	case strings.Contains(lower, "weekly"), strings.Contains(lower, "every week"):
		parsed.ExecutionType = model.ExecutionWeekly
	case strings.Contains(lower, "monthly"), strings.Contains(lower, "every month"):
		parsed.ExecutionType = model.ExecutionMonthly
	}

	parsed.Monitoring = containsAny(lower, "monitor", "watch", "alert")

	if m := amountPattern.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			parsed.Amount = decimal.NewFromFloat(v)
		}
	}

	return parsed, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
