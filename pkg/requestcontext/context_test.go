package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "waypoint/pkg/domain"
)

func TestAccessorsDefaultToZeroValues(t *testing.T) {
	ctx := context.Background()

	assert.True(t, UserID(ctx).IsNil())
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsReturnInjectedValues(t *testing.T) {
	userID := id.NewUserID()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ctx := WithUserID(context.Background(), userID)
	ctx = WithClientMetadata(ctx, "203.0.113.9", "curl/8")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, userID, UserID(ctx))
	assert.Equal(t, "203.0.113.9", ClientIP(ctx))
	assert.Equal(t, "curl/8", UserAgent(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
