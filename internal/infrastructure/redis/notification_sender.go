package redis

import (
	"auction-settlement/internal/domain"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisNotificationSender marks the auction closed in the state cache and
// publishes an auction_closed event on the settlement channel.
type RedisNotificationSender struct {
	client  *redis.Client
	channel string
	clock   domain.Clock
}

func NewRedisNotificationSender(client *redis.Client, channel string, clock domain.Clock) *RedisNotificationSender {
	return &RedisNotificationSender{
		client:  client,
		channel: channel,
		clock:   clock,
	}
}

func statusKey(auctionID string) string {
	return fmt.Sprintf("auction:%s:status", auctionID)
}

func (n *RedisNotificationSender) Send(ctx context.Context, auction *domain.Auction) error {
	if err := n.client.Set(ctx, statusKey(auction.ID), int(auction.Status()), 0).Err(); err != nil {
		return fmt.Errorf("cache status of auction %s: %w", auction.ID, err)
	}

	payload, err := json.Marshal(&domain.SettlementEvent{
		Type:        domain.AuctionClosedEvent,
		AuctionID:   auction.ID,
		Description: auction.Description,
		BidCount:    len(auction.Bids),
		Timestamp:   n.clock.Now(),
	})
	if err != nil {
		return err
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish closure of auction %s: %w", auction.ID, err)
	}
	return nil
}
