package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	t.Run("限流进入冷却期", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		tr := NewTracker()
		tr.now = func() time.Time { return now }

		tr.RecordRateLimited("mailtm", time.Minute)
		assert.True(t, tr.IsInCooldown("mailtm"))

		now = now.Add(59 * time.Second)
		assert.True(t, tr.IsInCooldown("mailtm"))

		now = now.Add(2 * time.Second)
		assert.False(t, tr.IsInCooldown("mailtm"))
	})

	t.Run("成功立即解除冷却", func(t *testing.T) {
		tr := NewTracker()
		tr.RecordRateLimited("mailgw", time.Hour)
		require.True(t, tr.IsInCooldown("mailgw"))

		tr.RecordSuccess("mailgw")
		assert.False(t, tr.IsInCooldown("mailgw"))
	})

	t.Run("普通失败不触发冷却", func(t *testing.T) {
		tr := NewTracker()
		tr.RecordFailure("guerrilla")
		assert.False(t, tr.IsInCooldown("guerrilla"))
	})

	t.Run("快照保持给定顺序并含计数", func(t *testing.T) {
		tr := NewTracker()
		tr.RecordSuccess("mailtm")
		tr.RecordSuccess("mailtm")
		tr.RecordRateLimited("1secmail", time.Minute)

		snap := tr.Snapshot([]string{"mailtm", "mailgw", "1secmail"})
		require.Len(t, snap, 3)
		assert.Equal(t, "mailtm", snap[0].Name)
		assert.Equal(t, int64(2), snap[0].SuccessCount)
		assert.False(t, snap[1].InCooldown)
		assert.True(t, snap[2].InCooldown)
		assert.Equal(t, int64(1), snap[2].RateLimited)
	})
}
