package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"
)

type providerStatusResponse struct {
	Name              string  `json:"name"`
	Status            string  `json:"status"`
	SuccessCount      int64   `json:"successCount"`
	FailureCount      int64   `json:"failureCount"`
	SuccessRate       float64 `json:"successRate"`
	CooldownRemaining float64 `json:"cooldownRemainingSeconds"`
}

// serviceStatus 服务横幅：运行信息、各服务商健康状态与关键配置回显。
func (h *Handler) serviceStatus(c *gin.Context) {
	now := time.Now()

	snapshot := h.mailboxes.ProviderStatus()
	providers := make([]providerStatusResponse, 0, len(snapshot))
	for _, s := range snapshot {
		entry := providerStatusResponse{
			Name:         s.Name,
			Status:       "available",
			SuccessCount: s.SuccessCount,
			FailureCount: s.FailureCount,
		}
		if total := s.SuccessCount + s.FailureCount; total > 0 {
			entry.SuccessRate = float64(s.SuccessCount) / float64(total)
		}
		if s.InCooldown {
			entry.Status = "cooldown"
			entry.CooldownRemaining = s.CooldownUntil.Sub(now).Seconds()
		}
		providers = append(providers, entry)
	}

	Success(c, gin.H{
		"service":   "tempmail-gateway",
		"uptime":    now.UTC().Sub(h.startedAt).String(),
		"providers": providers,
		"config": gin.H{
			"mailboxLifetime":  h.cfg.Mailbox.Lifetime.String(),
			"sweepInterval":    h.cfg.Mailbox.SweepInterval.String(),
			"providerCooldown": h.cfg.Provider.Cooldown().String(),
			"retryAttempts":    h.cfg.Provider.RetryAttempts,
		},
	})
}
