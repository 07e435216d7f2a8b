package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroadcaster fans room events out through Redis pub/sub so that
// observers connected to different service instances still see every event
// for their auction. One Redis channel per auction; per observer a single
// PubSub connection forwards messages into the observer's local channel, in
// channel order.
type RedisBroadcaster struct {
	client    *redis.Client
	observers map[string]chan outbound.Event // observerID -> local channel
	pubsubs   map[string]*redis.PubSub       // observerID -> pubsub connection
	rooms     map[string]map[string]bool     // observerID -> auctionID -> subscribed
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

// NewRedisBroadcaster creates a Redis-backed broadcaster
func NewRedisBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client:    params.RedisClient,
		observers: make(map[string]chan outbound.Event),
		pubsubs:   make(map[string]*redis.PubSub),
		rooms:     make(map[string]map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
		logger:    params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

func roomChannel(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s", auctionID.String())
}

// Subscribe joins the observer to the auction's Redis channel
func (b *RedisBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, observerID string, events chan outbound.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rooms[observerID] != nil && b.rooms[observerID][auctionID.String()] {
		return nil
	}

	if b.observers[observerID] == nil {
		b.observers[observerID] = events
	}
	if b.rooms[observerID] == nil {
		b.rooms[observerID] = make(map[string]bool)
	}
	b.rooms[observerID][auctionID.String()] = true

	pubsub, ok := b.pubsubs[observerID]
	if !ok {
		pubsub = b.client.Subscribe(ctx)
		b.pubsubs[observerID] = pubsub
		go b.forward(pubsub, observerID, events)
	}

	if err := pubsub.Subscribe(ctx, roomChannel(auctionID)); err != nil {
		b.logger.Error().Err(err).
			Str("observer_id", observerID).
			Str("auction_id", auctionID.String()).
			Msg("Failed to subscribe to Redis channel")
		return err
	}

	b.logger.Info().
		Str("observer_id", observerID).
		Str("auction_id", auctionID.String()).
		Msg("Observer joined room via Redis")
	return nil
}

// Unsubscribe removes the observer from the auction's Redis channel.
// Idempotent; the last unsubscribe tears down the observer's PubSub
// connection.
func (b *RedisBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, observerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	joined, ok := b.rooms[observerID]
	if !ok || !joined[auctionID.String()] {
		return nil
	}
	delete(joined, auctionID.String())

	if len(joined) > 0 {
		if pubsub, ok := b.pubsubs[observerID]; ok {
			if err := pubsub.Unsubscribe(ctx, roomChannel(auctionID)); err != nil {
				b.logger.Error().Err(err).
					Str("observer_id", observerID).
					Str("auction_id", auctionID.String()).
					Msg("Error unsubscribing from Redis channel")
			}
		}
		return nil
	}

	delete(b.rooms, observerID)
	delete(b.observers, observerID)
	if pubsub, ok := b.pubsubs[observerID]; ok {
		if err := pubsub.Close(); err != nil {
			b.logger.Error().Err(err).Str("observer_id", observerID).Msg("Error closing Redis pubsub")
		}
		delete(b.pubsubs, observerID)
	}
	return nil
}

// UnsubscribeAll removes the observer from every room it joined and tears
// down its PubSub connection. Used on disconnect. Idempotent.
func (b *RedisBroadcaster) UnsubscribeAll(ctx context.Context, observerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.rooms[observerID]; !ok {
		return nil
	}

	delete(b.rooms, observerID)
	delete(b.observers, observerID)
	if pubsub, ok := b.pubsubs[observerID]; ok {
		if err := pubsub.Close(); err != nil {
			b.logger.Error().Err(err).Str("observer_id", observerID).Msg("Error closing Redis pubsub")
		}
		delete(b.pubsubs, observerID)
	}

	b.logger.Info().Str("observer_id", observerID).Msg("Observer left all rooms")
	return nil
}

// Publish sends the event to the auction's Redis channel
func (b *RedisBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := b.client.Publish(ctx, roomChannel(auctionID), payload)
	if err := result.Err(); err != nil {
		b.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	b.logger.Debug().
		Str("auction_id", auctionID.String()).
		Str("event_type", string(event.Type)).
		Int64("receivers", result.Val()).
		Msg("Event published via Redis")
	return nil
}

// IsSubscribed checks if an observer is subscribed to an auction
func (b *RedisBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, observerID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	joined, ok := b.rooms[observerID]
	return ok && joined[auctionID.String()]
}

// forward relays Redis messages into the observer's local channel
func (b *RedisBroadcaster) forward(pubsub *redis.PubSub, observerID string, events chan outbound.Event) {
	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Error().Err(err).Str("observer_id", observerID).Msg("Failed to unmarshal Redis message")
				continue
			}

			select {
			case events <- event:
			default:
				b.logger.Warn().Str("observer_id", observerID).Msg("Observer channel full, dropping event")
			}

		case <-b.ctx.Done():
			return
		}
	}
}

// Close tears down every PubSub connection and the Redis client
func (b *RedisBroadcaster) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for observerID, pubsub := range b.pubsubs {
		if err := pubsub.Close(); err != nil {
			b.logger.Error().Err(err).Str("observer_id", observerID).Msg("Error closing Redis pubsub")
		}
		delete(b.pubsubs, observerID)
	}
	for observerID := range b.observers {
		delete(b.observers, observerID)
	}
	return b.client.Close()
}
