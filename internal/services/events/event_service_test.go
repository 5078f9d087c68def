package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockpile/internal/common"
	"github.com/ternarybob/stockpile/internal/interfaces"
)

func TestService_PublishSync(t *testing.T) {
	svc := NewService(common.GetLogger())

	var calls int32
	require.NoError(t, svc.Subscribe(interfaces.EventRefreshCompleted, func(ctx context.Context, e interfaces.Event) error {
		atomic.AddInt32(&calls, 1)
		payload, ok := e.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "abc123", payload["cycle_id"])
		return nil
	}))

	err := svc.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventRefreshCompleted,
		Payload: map[string]interface{}{"cycle_id": "abc123"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestService_PublishSync_ReturnsFirstError(t *testing.T) {
	svc := NewService(common.GetLogger())

	wantErr := errors.New("handler broke")
	require.NoError(t, svc.Subscribe(interfaces.EventRefreshFailed, func(ctx context.Context, e interfaces.Event) error {
		return wantErr
	}))
	var secondRan bool
	require.NoError(t, svc.Subscribe(interfaces.EventRefreshFailed, func(ctx context.Context, e interfaces.Event) error {
		secondRan = true
		return nil
	}))

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventRefreshFailed})
	assert.ErrorIs(t, err, wantErr)
	assert.True(t, secondRan)
}

func TestService_PublishAsync(t *testing.T) {
	svc := NewService(common.GetLogger())

	done := make(chan struct{})
	require.NoError(t, svc.Subscribe(interfaces.EventRefreshStarted, func(ctx context.Context, e interfaces.Event) error {
		close(done)
		return nil
	}))

	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventRefreshStarted}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestService_SubscribeNilHandler(t *testing.T) {
	svc := NewService(common.GetLogger())
	assert.Error(t, svc.Subscribe(interfaces.EventRefreshStarted, nil))
}

func TestService_PublishWithoutSubscribers(t *testing.T) {
	svc := NewService(common.GetLogger())
	assert.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventSnapshotHydrated}))
}
