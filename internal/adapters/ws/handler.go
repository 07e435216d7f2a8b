package ws

import (
	"context"
	"net/http"
	"sync"

	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/inbound"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler manages observer connections and routes their messages into the
// bidding engine. Each client owns one event channel; the room broadcaster
// delivers events for every auction the client watches into that channel, in
// publish order.
type WsHandler struct {
	clients        map[string]*WsClient
	clientsMu      sync.RWMutex
	eventChannels  map[string]chan outbound.Event
	channelsMu     sync.RWMutex
	upgrader       websocket.Upgrader
	auctionService inbound.AuctionService
	bidService     inbound.BidService
	broadcaster    outbound.Broadcaster
	logger         zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader       websocket.Upgrader
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	Broadcaster    outbound.Broadcaster
	Logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:        make(map[string]*WsClient),
		eventChannels:  make(map[string]chan outbound.Event),
		upgrader:       params.Upgrader,
		auctionService: params.AuctionService,
		bidService:     params.BidService,
		broadcaster:    params.Broadcaster,
		logger:         params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (h *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		UserID:  userID,
		Conn:    conn,
		Handler: h,
		Logger:  h.logger,
	})

	h.registerClient(client)
	h.createEventChannel(client.id)

	client.Start()
	go h.forwardEvents(client)

	go func() {
		<-client.ctx.Done()
		h.unregisterClient(client)
	}()

	h.logger.Info().
		Str("client_id", client.id).
		Str("user_id", client.userID.String()).
		Msg("Observer connected")
}

func (h *WsHandler) registerClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client.id] = client
}

// unregisterClient leaves every room the client joined, then tears the
// connection down. Abrupt disconnects end up here via the client context.
func (h *WsHandler) unregisterClient(client *WsClient) {
	h.clientsMu.Lock()
	delete(h.clients, client.id)
	h.clientsMu.Unlock()

	if err := h.broadcaster.UnsubscribeAll(context.Background(), client.id); err != nil {
		h.logger.Error().Err(err).
			Str("client_id", client.id).
			Msg("Failed to unsubscribe disconnecting observer")
	}

	client.Stop()
	h.removeEventChannel(client.id)

	h.logger.Info().
		Str("client_id", client.id).
		Str("user_id", client.userID.String()).
		Msg("Observer disconnected")
}

func (h *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if ch, ok := h.eventChannels[clientID]; ok {
		return ch
	}
	ch := make(chan outbound.Event, 100)
	h.eventChannels[clientID] = ch
	return ch
}

func (h *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.RLock()
	defer h.channelsMu.RUnlock()
	return h.eventChannels[clientID]
}

// removeEventChannel drops the channel from the table without closing it: a
// publish or the redis forwarder may still hold a reference, and a send on a
// closed channel panics. The orphaned channel is collected once the last
// holder lets go; forwardEvents exits via the client context instead.
func (h *WsHandler) removeEventChannel(clientID string) {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()
	delete(h.eventChannels, clientID)
}

// forwardEvents relays room events to the client's socket, preserving the
// order they arrive on the event channel.
func (h *WsHandler) forwardEvents(client *WsClient) {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		h.logger.Error().Str("client_id", client.id).Msg("No event channel for client")
		return
	}

	for {
		select {
		case event := <-eventChan:
			if err := client.Send(eventToMessage(event)); err != nil {
				h.logger.Warn().Err(err).
					Str("client_id", client.id).
					Str("event_type", string(event.Type)).
					Msg("Failed to forward event to observer")
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func eventToMessage(event outbound.Event) *ServerMessage {
	auctionID := event.AuctionID
	msg := &ServerMessage{
		AuctionID: &auctionID,
		Timestamp: event.Timestamp,
	}

	switch event.Type {
	case outbound.EventTypeBidUpdate:
		msg.Type = MessageTypeBidUpdate
		msg.BidUpdate = event.BidUpdate
	case outbound.EventTypeAuctionClosed:
		msg.Type = MessageTypeAuctionClosed
		msg.AuctionClosed = event.AuctionClosed
	default:
		msg.Type = MessageType(event.Type)
	}
	return msg
}

// HandleClientMessage routes one validated client message
func (h *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return h.handleSubscribe(client, msg)
	case MessageTypeUnsubscribe:
		return h.handleUnsubscribe(client, msg)
	case MessageTypePlaceBid:
		return h.handlePlaceBid(client, msg)
	case MessageTypeGetAuction:
		return h.handleGetAuction(client, msg)
	default:
		return shared.ErrUnknownMessageType
	}
}

func (h *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		return shared.ErrInternal
	}

	if err := h.broadcaster.Subscribe(ctx, *msg.AuctionID, client.id, eventChan); err != nil {
		h.logger.Error().Err(err).
			Str("client_id", client.id).
			Str("auction_id", msg.AuctionID.String()).
			Msg("Failed to subscribe observer")
		return err
	}

	reply := NewServerMessage(MessageTypeSubscribed)
	reply.AuctionID = msg.AuctionID
	return client.Send(reply)
}

func (h *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	if err := h.broadcaster.Unsubscribe(ctx, *msg.AuctionID, client.id); err != nil {
		return err
	}

	reply := NewServerMessage(MessageTypeUnsubscribed)
	reply.AuctionID = msg.AuctionID
	return client.Send(reply)
}

// handlePlaceBid submits a bid. Rejections and internal failures go back to
// the submitting observer only; accepted bids were already broadcast to the
// room by the bid service.
func (h *WsHandler) handlePlaceBid(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	req := inbound.PlaceBidRequest{
		AuctionID:  *msg.AuctionID,
		BidderID:   client.userID,
		ObserverID: client.id,
		Amount:     *msg.Amount,
	}

	result, err := h.bidService.PlaceBid(ctx, req)
	if err != nil {
		if !shared.IsValidationRejection(err) {
			err = shared.ErrInternal
		}
		return client.Send(NewBidErrorMessage(err.Error(), msg.AuctionID))
	}

	h.logger.Debug().
		Str("client_id", client.id).
		Str("auction_id", result.AuctionID.String()).
		Float64("amount", result.NewHighestBid).
		Msg("Bid accepted for observer")
	return nil
}

func (h *WsHandler) handleGetAuction(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	a, err := h.auctionService.GetAuction(ctx, *msg.AuctionID)
	if err != nil {
		return client.Send(NewBidErrorMessage(err.Error(), msg.AuctionID))
	}

	reply := NewServerMessage(MessageTypeAuction)
	reply.AuctionID = msg.AuctionID
	reply.Auction = a
	return client.Send(reply)
}

// ConnectedClients returns the number of connected observers
func (h *WsHandler) ConnectedClients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
