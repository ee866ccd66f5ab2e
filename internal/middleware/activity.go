package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/service"
)

const ContextActivityKey = "activity_log"

// ActivityMiddleware records each API call into the wallet activity
// feed. The wallet is sniffed from the query string or request body.
func ActivityMiddleware(activitySvc *service.ActivityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.New().String()
		c.Header("X-Request-ID", reqID)

		var reqBodyBytes []byte
		if c.Request.Body != nil {
			reqBodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(reqBodyBytes))
		}

		entry := &model.ActivityLog{
			ID:        reqID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			IP:        c.ClientIP(),
			CreatedAt: start,
		}
		c.Set(ContextActivityKey, entry)

		c.Next()

		entry.Wallet = sniffWallet(c, reqBodyBytes)
		entry.StatusCode = c.Writer.Status()
		entry.LatencyMs = time.Since(start).Milliseconds()
		activitySvc.Log(entry)
	}
}

// AddActivityDetail lets handlers attach business context to the entry.
func AddActivityDetail(c *gin.Context, detail string) {
	if val, exists := c.Get(ContextActivityKey); exists {
		if entry, ok := val.(*model.ActivityLog); ok {
			entry.Detail = detail
		}
	}
}

func sniffWallet(c *gin.Context, body []byte) string {
	if w := c.Query("wallet"); w != "" {
		return w
	}
	if len(body) == 0 {
		return ""
	}
	var probe struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.WalletAddress
}
