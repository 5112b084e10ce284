package redis

import (
	"auction-settlement/internal/domain"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var sentAt = time.Date(2020, 4, 22, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisNotificationSender_PublishesClosure(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "auction_events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	auction := &domain.Auction{
		ID:          "a1",
		Description: "TV de plasma",
		Closed:      true,
		Bids:        []domain.Bid{{BidderID: "jose", Amount: 2000}},
	}

	sender := NewRedisNotificationSender(client, "auction_events", fixedClock{now: sentAt})
	require.NoError(t, sender.Send(ctx, auction))

	select {
	case msg := <-sub.Channel():
		var event domain.SettlementEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, domain.AuctionClosedEvent, event.Type)
		assert.Equal(t, "a1", event.AuctionID)
		assert.Equal(t, "TV de plasma", event.Description)
		assert.Equal(t, 1, event.BidCount)
		assert.True(t, sentAt.Equal(event.Timestamp))
	case <-time.After(2 * time.Second):
		t.Fatal("no closure event received")
	}

	status, err := mr.Get("auction:a1:status")
	require.NoError(t, err)
	assert.Equal(t, "1", status)
}

func TestRedisNotificationSender_ReportsRedisErrors(t *testing.T) {
	mr, client := newTestClient(t)
	mr.SetError("LOADING Redis is loading the dataset in memory")

	sender := NewRedisNotificationSender(client, "auction_events", fixedClock{now: sentAt})
	err := sender.Send(context.Background(), &domain.Auction{ID: "a1", Closed: true})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a1")
}
