package service

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/observability"
)

// Broadcaster is the fan-out engine: given an event and a scope (one room or
// every live connection) it pushes the payload to each target connection.
// Delivery is a non-blocking enqueue onto the client's send buffer, so one
// slow or dead peer never stalls the rest of a broadcast.
type Broadcaster struct {
	registry *roomRegistry

	mu   sync.RWMutex
	live map[*chatClient]struct{}

	log zerolog.Logger
}

// NewBroadcaster constructs the fan-out engine. It is created once per
// process and handed to every component that delivers, never reached through
// package-level state.
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: newRoomRegistry(logger),
		live:     make(map[*chatClient]struct{}),
		log:      logger.With().Str("component", "broadcaster").Logger(),
	}
}

// attach adds a connection to the live set.
func (b *Broadcaster) attach(client *chatClient) {
	b.mu.Lock()
	b.live[client] = struct{}{}
	b.mu.Unlock()
}

// detach removes a connection from the live set and reports whether it was
// present, so callers stay idempotent.
func (b *Broadcaster) detach(client *chatClient) bool {
	b.mu.Lock()
	_, present := b.live[client]
	delete(b.live, client)
	b.mu.Unlock()
	return present
}

func (b *Broadcaster) liveCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.live)
}

// BroadcastToRoom delivers the event to every current member of the room.
// Membership is resolved at call time; members that disconnect before the
// enqueue are simply skipped.
func (b *Broadcaster) BroadcastToRoom(room string, event dto.ServerEvent) {
	for _, client := range b.registry.Members(room) {
		b.deliver(client, event, "room")
	}
}

// BroadcastAll delivers the event to every live connection regardless of room
// membership. Used for the notification stream.
func (b *Broadcaster) BroadcastAll(event dto.ServerEvent) {
	b.mu.RLock()
	targets := make([]*chatClient, 0, len(b.live))
	for client := range b.live {
		targets = append(targets, client)
	}
	b.mu.RUnlock()

	for _, client := range targets {
		b.deliver(client, event, "all")
	}
}

func (b *Broadcaster) deliver(client *chatClient, event dto.ServerEvent, scope string) {
	if client.isClosed() {
		return
	}
	select {
	case client.send <- event:
	default:
		observability.DeliveryDropsTotal().WithLabelValues(scope).Inc()
		b.log.Warn().Str("connection_id", client.id).Str("scope", scope).Msg("dropping event for slow client")
	}
}
