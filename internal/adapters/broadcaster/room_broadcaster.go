package broadcaster

import (
	"context"
	"sync"
	"time"

	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RoomBroadcaster is the in-process implementation of the room abstraction:
// a concurrency-safe map from auction id to the set of subscribed observers.
// A room is created on first subscribe and destroyed when its last observer
// leaves. Delivery into an observer's channel is in publish order; a full
// channel drops the event rather than blocking the publisher.
type RoomBroadcaster struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[string]chan outbound.Event
	logger zerolog.Logger
}

type RoomBroadcasterParams struct {
	Logger zerolog.Logger
}

// NewRoomBroadcaster creates an empty room broadcaster
func NewRoomBroadcaster(params RoomBroadcasterParams) *RoomBroadcaster {
	return &RoomBroadcaster{
		rooms:  make(map[uuid.UUID]map[string]chan outbound.Event),
		logger: params.Logger.With().Str("component", "room_broadcaster").Logger(),
	}
}

// Subscribe adds the observer to the auction's room
func (b *RoomBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, observerID string, events chan outbound.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	room, ok := b.rooms[auctionID]
	if !ok {
		room = make(map[string]chan outbound.Event)
		b.rooms[auctionID] = room
	}

	if _, ok := room[observerID]; ok {
		b.logger.Debug().
			Str("observer_id", observerID).
			Str("auction_id", auctionID.String()).
			Msg("Observer already subscribed")
		return nil
	}

	room[observerID] = events
	b.logger.Info().
		Str("observer_id", observerID).
		Str("auction_id", auctionID.String()).
		Int("room_size", len(room)).
		Msg("Observer joined room")
	return nil
}

// Unsubscribe removes the observer from the auction's room. Idempotent.
func (b *RoomBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, observerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	room, ok := b.rooms[auctionID]
	if !ok {
		return nil
	}
	if _, ok := room[observerID]; !ok {
		return nil
	}

	delete(room, observerID)
	if len(room) == 0 {
		delete(b.rooms, auctionID)
	}

	b.logger.Info().
		Str("observer_id", observerID).
		Str("auction_id", auctionID.String()).
		Msg("Observer left room")
	return nil
}

// UnsubscribeAll removes the observer from every room it joined. Used on
// disconnect. Idempotent.
func (b *RoomBroadcaster) UnsubscribeAll(ctx context.Context, observerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for auctionID, room := range b.rooms {
		if _, ok := room[observerID]; !ok {
			continue
		}
		delete(room, observerID)
		if len(room) == 0 {
			delete(b.rooms, auctionID)
		}
	}
	return nil
}

// Publish delivers the event to every current subscriber of the auction. The
// read lock is held across the sends so an Unsubscribe cannot complete while a
// delivery to that observer is in flight; once Unsubscribe returns, the
// observer's channel will never be written again and the owner may close it.
// Sends are non-blocking, so the lock is never held on a full channel.
func (b *RoomBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	room := b.rooms[auctionID]
	if len(room) == 0 {
		return nil
	}

	delivered := 0
	for _, ch := range room {
		select {
		case ch <- event:
			delivered++
		default:
			// Slow observer; drop rather than block the publisher.
			b.logger.Warn().
				Str("auction_id", auctionID.String()).
				Str("event_type", string(event.Type)).
				Msg("Observer channel full, dropping event")
		}
	}

	b.logger.Debug().
		Str("auction_id", auctionID.String()).
		Str("event_type", string(event.Type)).
		Int("delivered", delivered).
		Msg("Event published to room")
	return nil
}

// IsSubscribed checks if an observer is in the auction's room
func (b *RoomBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, observerID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	room, ok := b.rooms[auctionID]
	if !ok {
		return false
	}
	_, ok = room[observerID]
	return ok
}

// RoomSize returns the number of observers currently in an auction's room
func (b *RoomBroadcaster) RoomSize(auctionID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[auctionID])
}
