package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pairline/pairline/internal/domain"
)

func TestChatRateLimiter_Blocks_Over_Limit(t *testing.T) {
	req := require.New(t)
	rl := NewChatRateLimiter(3, time.Minute)
	user := domain.UserID("u1")

	req.True(rl.Allow(user))
	req.True(rl.Allow(user))
	req.True(rl.Allow(user))
	req.False(rl.Allow(user))

	// Other users have their own window
	req.True(rl.Allow("u2"))
}

func TestChatRateLimiter_Window_Slides(t *testing.T) {
	req := require.New(t)
	rl := NewChatRateLimiter(1, 20*time.Millisecond)
	user := domain.UserID("u1")

	req.True(rl.Allow(user))
	req.False(rl.Allow(user))

	time.Sleep(25 * time.Millisecond)
	req.True(rl.Allow(user))
}
