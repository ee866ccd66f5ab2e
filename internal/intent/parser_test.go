package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
)

func TestPresetParserRiskLevels(t *testing.T) {
	parser := &PresetParser{}

	tests := []struct {
		text      string
		riskLevel string
		execType  model.ExecutionType
	}{
		{"keep my money safe", "conservative", model.ExecutionOnce},
		{"maximize yield aggressively", "aggressive", model.ExecutionOnce},
		{"just invest it", "balanced", model.ExecutionOnce},
		{"invest $1,000 monthly and monitor it", "balanced", model.ExecutionMonthly},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			parsed, err := parser.Parse(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.riskLevel, parsed.RiskLevel)
			assert.Equal(t, tt.execType, parsed.ExecutionType)
			assert.True(t, parsed.Allocation.Valid(), "preset allocation must sum to 100")
		})
	}
}

func TestPresetParserAmountExtraction(t *testing.T) {
	parser := &PresetParser{}

	parsed, err := parser.Parse(context.Background(), "put $2,500.50 somewhere safe")
	require.NoError(t, err)
	assert.Equal(t, "2500.5", parsed.Amount.String())
	assert.True(t, parsed.Monitoring == false)
}

func llmFixture(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestLLMParserParsesCompletion(t *testing.T) {
	srv := llmFixture(t, `{"amount": 1000, "risk_level": "aggressive",
		"allocation": {"stable": 20, "liquid": 30, "growth": 50},
		"execution_type": "weekly", "monitoring": true,
		"explanation": "growth weighted"}`)
	defer srv.Close()

	parser := NewLLMParser(config.IntentConfig{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		Model:     "test-model",
		TimeoutMs: 2000,
	})

	parsed, err := parser.Parse(context.Background(), "grow my savings fast")
	require.NoError(t, err)
	assert.Equal(t, "aggressive", parsed.RiskLevel)
	assert.Equal(t, model.ExecutionWeekly, parsed.ExecutionType)
	assert.Equal(t, 50.0, parsed.Allocation.Growth)
	assert.True(t, parsed.Monitoring)
}

func TestLLMParserRejectsBadAllocation(t *testing.T) {
	srv := llmFixture(t, `{"amount": 1000, "risk_level": "balanced",
		"allocation": {"stable": 50, "liquid": 20, "growth": 20},
		"execution_type": "once"}`)
	defer srv.Close()

	parser := NewLLMParser(config.IntentConfig{BaseURL: srv.URL, APIKey: "k", Model: "m", TimeoutMs: 2000})

	_, err := parser.Parse(context.Background(), "whatever")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrInvalidAllocation, appErr.Type)
}

func TestLLMParserUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	parser := NewLLMParser(config.IntentConfig{BaseURL: srv.URL, APIKey: "k", Model: "m", TimeoutMs: 2000})

	_, err := parser.Parse(context.Background(), "whatever")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUpstream, appErr.Type)
}
