package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
)

type MessageType string

const (
	// Client to server
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePlaceBid    MessageType = "place_bid"
	MessageTypeGetAuction  MessageType = "get_auction"
	MessageTypePing        MessageType = "ping"

	// Server to client
	MessageTypeBidUpdate     MessageType = "bid_update"
	MessageTypeAuctionClosed MessageType = "auction_closed"
	MessageTypeBidError      MessageType = "bid_error"
	MessageTypeSubscribed    MessageType = "subscribed"
	MessageTypeUnsubscribed  MessageType = "unsubscribed"
	MessageTypeAuction       MessageType = "auction"
	MessageTypePong          MessageType = "pong"
)

// ClientMessage is one inbound request on an observer's channel
type ClientMessage struct {
	Type      MessageType `json:"type"`
	AuctionID *uuid.UUID  `json:"auction_id,omitempty"`
	Amount    *float64    `json:"amount,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ServerMessage is one outbound event or reply. Exactly one payload field is
// set, matching Type.
type ServerMessage struct {
	Type          MessageType             `json:"type"`
	AuctionID     *uuid.UUID              `json:"auction_id,omitempty"`
	BidUpdate     *outbound.BidUpdate     `json:"bid_update,omitempty"`
	AuctionClosed *outbound.AuctionClosed `json:"auction_closed,omitempty"`
	Auction       *auction.Auction        `json:"auction,omitempty"`
	Error         *string                 `json:"error,omitempty"`
	Timestamp     int64                   `json:"timestamp"`
}

// NewServerMessage creates a reply of the given type
func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
	}
}

// NewBidErrorMessage creates the point-to-point rejection reply
func NewBidErrorMessage(msg string, auctionID *uuid.UUID) *ServerMessage {
	reply := NewServerMessage(MessageTypeBidError)
	reply.AuctionID = auctionID
	reply.Error = &msg
	return reply
}

// ParseClientMessage parses a JSON message from a client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe, MessageTypeGetAuction:
		return m.validateAuctionID()

	case MessageTypePlaceBid:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
		if m.Amount == nil || *m.Amount <= 0 {
			return shared.ErrInvalidAmount
		}

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}

func (m *ClientMessage) validateAuctionID() error {
	if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}
	return nil
}
