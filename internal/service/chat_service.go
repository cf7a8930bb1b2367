package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/models"
	"github.com/noah-isme/gema-chat-service/internal/observability"
	"github.com/noah-isme/gema-chat-service/internal/repository"
)

const (
	chatRedisTTL        = 30 * time.Minute
	defaultStoreTimeout = 5 * time.Second
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
// UserID is optional: anonymous chat participation is permitted.
type ChatConnectionOptions struct {
	UserID        string
	Room          string
	CorrelationID string
	Context       context.Context
}

// ChatService is the connection gateway: it owns the lifecycle of each live
// websocket, routes inbound events to the room registry and message store,
// and serves room history.
type ChatService interface {
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
	History(ctx context.Context, query dto.ChatHistoryQuery) ([]dto.ChatMessageResponse, error)
	Start(ctx context.Context)
}

type chatService struct {
	repo         repository.MessageRepository
	broadcaster  *Broadcaster
	notifier     NotificationService
	sequence     *roomSequencer
	redis        *redis.Client
	redisStream  string
	redisCache   string
	nats         *nats.Conn
	natsSubject  string
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	sanitizer    *bluemonday.Policy
	storeTimeout time.Duration
	nodeID       string
}

type chatEvent struct {
	Source  string                  `json:"source"`
	Message dto.ChatMessageResponse `json:"message"`
	SentAt  time.Time               `json:"sent_at"`
}

// NewChatService creates the connection gateway. The broadcaster is shared
// with the notification service so both fan out through the same engine.
func NewChatService(repo repository.MessageRepository, broadcaster *Broadcaster, notifier NotificationService, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, storeTimeout time.Duration, logger zerolog.Logger) ChatService {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	streamChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":chat"
		cachePrefix = channelBase + ":chat:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &chatService{
		repo:         repo,
		broadcaster:  broadcaster,
		notifier:     notifier,
		sequence:     newRoomSequencer(),
		redis:        redisClient,
		redisStream:  streamChannel,
		redisCache:   cachePrefix,
		nats:         natsConn,
		natsSubject:  natsSubject,
		validator:    validate,
		logger:       logger.With().Str("component", "chat_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-chat-service/internal/service/chat"),
		sanitizer:    sanitizer,
		storeTimeout: storeTimeout,
		nodeID:       uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := s.Accept(conn, opts)

	if room := strings.TrimSpace(opts.Room); room != "" {
		if err := s.Join(baseCtx, client, room); err != nil {
			client.reject(err)
		}
	}

	go client.writer()
	client.reader()
}

// Accept registers a new live connection with no room memberships.
func (s *chatService) Accept(conn wsConn, opts ChatConnectionOptions) *chatClient {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &chatClient{
		id:      uuid.NewString(),
		userID:  opts.UserID,
		conn:    conn,
		send:    make(chan dto.ServerEvent, clientSendBufferSize),
		service: s,
		baseCtx: baseCtx,
		closed:  make(chan struct{}),
		rooms:   make(map[string]struct{}),
	}

	s.broadcaster.attach(client)
	observability.ChatConnectionsActive().Inc()

	return client
}

// Join subscribes the connection to a room. Repeat joins are no-ops; an empty
// room name is rejected with ErrInvalidRoom.
func (s *chatService) Join(ctx context.Context, client *chatClient, room string) error {
	room = strings.TrimSpace(room)
	if room == "" {
		return ErrInvalidRoom
	}

	if !client.addRoom(room) {
		return nil
	}

	s.broadcaster.registry.Add(room, client)
	if client.isClosed() {
		// Disconnect raced the join; undo so the registry never points at
		// a dead connection.
		s.broadcaster.registry.Remove(room, client)
		return nil
	}

	if last := s.fetchLastMessage(ctx, room); last != nil {
		select {
		case client.send <- dto.NewChatServerEvent(*last):
		default:
			s.logger.Debug().Str("room", room).Msg("dropping cached chat message for slow consumer")
		}
	}

	return nil
}

// Dispatch validates, persists, and broadcasts a chat message, then raises a
// broadcast-scope notification. Persistence and broadcast are serialized per
// room so members observe messages in persistence-completion order. A store
// failure is returned as ErrPersistence but never suppresses the broadcast.
func (s *chatService) Dispatch(ctx context.Context, sender *chatClient, payload dto.ChatSendRequest) (dto.ChatMessageResponse, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Room = strings.TrimSpace(payload.Room)
	if payload.Room == "" {
		payload.Room = models.DefaultRoom
	}

	payload.Text = strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	if payload.Name == "" || payload.Text == "" {
		return dto.ChatMessageResponse{}, ErrInvalidMessage
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatMessageResponse{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	attrs := []attribute.KeyValue{
		attribute.String("chat.room", payload.Room),
		attribute.String("chat.sender", payload.Name),
		attribute.String("chat.connection_id", sender.id),
	}
	spanCtx, span := s.tracer.Start(ctx, "chat.dispatch", trace.WithAttributes(attrs...))
	defer span.End()

	model := models.ChatMessage{
		Room: payload.Room,
		Name: payload.Name,
		Text: payload.Text,
		Time: payload.Time,
	}

	unlock := s.sequence.Lock(payload.Room)
	persistCtx, cancel := context.WithTimeout(spanCtx, s.storeTimeout)
	persistErr := s.repo.Append(persistCtx, &model)
	cancel()
	if persistErr != nil {
		// Still broadcast: a store outage degrades durability, not realtime
		// delivery. Recipients may see a message that is not recoverable
		// after restart.
		model.CreatedAt = time.Now().UTC()
	}
	response := dto.NewChatMessageResponse(model)
	s.broadcaster.BroadcastToRoom(payload.Room, dto.NewChatServerEvent(response))
	unlock()

	if persistErr != nil {
		span.RecordError(persistErr)
		s.logger.Error().Err(persistErr).Str("room", payload.Room).Msg("chat message broadcast without durable write")
		return response, fmt.Errorf("%w: %v", ErrPersistence, persistErr)
	}

	s.cacheLastMessage(spanCtx, response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}
	s.notifyPosted(spanCtx, response)

	observability.ChatMessagesTotal().Inc()

	return response, nil
}

// Disconnect retracts every room membership and removes the connection from
// the live set. Safe to call more than once; it never blocks on in-flight sends.
func (s *chatService) Disconnect(client *chatClient) {
	for room := range client.detachRooms() {
		s.broadcaster.registry.Remove(room, client)
	}

	if s.broadcaster.detach(client) {
		observability.ChatConnectionsActive().Dec()
	}
}

func (s *chatService) History(ctx context.Context, query dto.ChatHistoryQuery) ([]dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	messages, err := s.repo.Recent(ctx, query.Room, query.Limit)
	if err != nil {
		return nil, err
	}

	return dto.NewChatMessageResponseSlice(messages), nil
}

func (s *chatService) notifyPosted(ctx context.Context, message dto.ChatMessageResponse) {
	if s.notifier == nil {
		return
	}

	request := dto.NotificationCreateRequest{
		Type:    models.NotificationMessagePosted,
		Message: fmt.Sprintf("New message from %s in %s", message.Name, message.Room),
		Metadata: map[string]string{
			"room": message.Room,
		},
	}

	if _, err := s.notifier.Publish(ctx, request); err != nil {
		s.logger.Warn().Err(err).Str("room", message.Room).Msg("failed to publish message-posted notification")
	}
}

func (s *chatService) cacheLastMessage(ctx context.Context, message dto.ChatMessageResponse) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal chat message for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, message.Room)
	if err := s.redis.Set(ctx, key, payload, chatRedisTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache chat message")
	}
}

func (s *chatService) fetchLastMessage(ctx context.Context, room string) *dto.ChatMessageResponse {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, room)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.ChatMessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached chat message")
		return nil
	}

	return &message
}

func (s *chatService) publish(ctx context.Context, message dto.ChatMessageResponse) error {
	event := chatEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "gema-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

// handleEvent re-broadcasts a chat message persisted by a peer node to the
// local members of its room.
func (s *chatService) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	observability.ChatMessagesTotal().Inc()
	s.broadcaster.BroadcastToRoom(event.Message.Room, dto.NewChatServerEvent(event.Message))
}
