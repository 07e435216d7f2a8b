package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LifecycleService closes one expired auction at most once
type LifecycleService interface {
	CloseExpiredAuction(ctx context.Context, auctionID uuid.UUID) (*shared.ClosureResult, error)
}

// Sweeper periodically finds auctions past their deadline, freezes them and
// announces the winner. A failure on one auction skips to the next; the
// auction still matches the sweep predicate and is retried on the next tick.
type Sweeper struct {
	store       outbound.AuctionStore
	lifecycle   LifecycleService
	broadcaster outbound.Broadcaster
	interval    time.Duration
	logger      zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

type SweeperParams struct {
	Store       outbound.AuctionStore
	Lifecycle   LifecycleService
	Broadcaster outbound.Broadcaster
	Interval    time.Duration
	Logger      zerolog.Logger
}

// NewSweeper creates a lifecycle sweeper
func NewSweeper(params SweeperParams) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		store:       params.Store,
		lifecycle:   params.Lifecycle,
		broadcaster: params.Broadcaster,
		interval:    params.Interval,
		logger:      params.Logger.With().Str("component", "lifecycle_sweeper").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins the periodic sweep loop
func (s *Sweeper) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting lifecycle sweeper")

	s.wg.Add(1)
	go s.loop()
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop() {
	s.logger.Info().Msg("Stopping lifecycle sweeper")
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(s.ctx)
		case <-s.ctx.Done():
			s.logger.Info().Msg("Sweeper loop stopped")
			return
		}
	}
}

// Sweep runs one pass over the expired active auctions. Safe to invoke
// repeatedly: an auction already closed by an earlier pass is skipped.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	expired, err := s.store.FindActiveExpired(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query expired auctions")
		return
	}
	if len(expired) == 0 {
		return
	}

	s.logger.Debug().Int("count", len(expired)).Msg("Found expired auctions")

	for _, a := range expired {
		result, err := s.lifecycle.CloseExpiredAuction(ctx, a.ID)
		if err != nil {
			if errors.Is(err, shared.ErrAuctionAlreadyClosed) {
				continue
			}
			s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to close auction, will retry next tick")
			continue
		}

		if !result.HasWinner() {
			// No bids were ever placed; close silently.
			continue
		}

		event := outbound.NewAuctionClosedEvent(outbound.AuctionClosed{
			ItemID:         result.AuctionID,
			Title:          result.Title,
			WinnerUsername: result.WinnerUsername,
			FinalBid:       result.FinalBid,
		})
		if err := s.broadcaster.Publish(ctx, result.AuctionID, event); err != nil {
			// The closure is committed; delivery is best-effort.
			s.logger.Error().Err(err).Str("auction_id", result.AuctionID.String()).Msg("Failed to broadcast auction closure")
		}
	}
}
