package integration_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/handler"
	"github.com/noah-isme/gema-chat-service/internal/middleware"
	"github.com/noah-isme/gema-chat-service/internal/models"
	"github.com/noah-isme/gema-chat-service/internal/repository"
	"github.com/noah-isme/gema-chat-service/internal/service"
	"github.com/noah-isme/gema-chat-service/internal/utils"
)

func TestChatWebsocketEndToEnd(t *testing.T) {
	baseURL, shutdown := startChatServer(t)
	defer shutdown()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v2/chat/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	// Alice and Bob join math101; Carol connects but joins another room.
	alice := dialChat(t, dialer, wsURL+"?room=math101")
	defer alice.Close()
	bob := dialChat(t, dialer, wsURL+"?room=math101")
	defer bob.Close()
	carol := dialChat(t, dialer, wsURL+"?room=physics")
	defer carol.Close()

	// The query-string join runs after the handshake response, so give all
	// three memberships a moment to land before publishing.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, alice.WriteJSON(dto.ClientEvent{
		Event:   dto.EventChatMessage,
		Message: &dto.ChatSendRequest{Name: "alice", Text: "hello math", Room: "math101"},
	}))

	for _, member := range []*websocket.Conn{alice, bob} {
		event := readServerEvent(t, member, dto.EventChatMessage)
		require.NotNil(t, event.Message)
		require.Equal(t, "math101", event.Message.Room)
		require.Equal(t, "hello math", event.Message.Text)
		require.NotZero(t, event.Message.ID)
	}

	// Carol is not a member of math101: she sees only the broadcast-scope
	// notification raised for the message.
	notification := readServerEvent(t, carol, dto.EventNotification)
	require.NotNil(t, notification.Notification)
	require.Equal(t, "New message from alice in math101", notification.Notification.Message)
	require.Empty(t, notification.Notification.UserID)

	// The message also landed in the store and replays over HTTP.
	resp, err := http.Get(baseURL + "/api/v2/chat/messages?room=math101")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var history []dto.ChatMessageResponse
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 1)
	require.Equal(t, "hello math", history[0].Text)
}

func TestChatWebsocketRejectsInvalidMessage(t *testing.T) {
	baseURL, shutdown := startChatServer(t)
	defer shutdown()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v2/chat/ws?room=math101"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	conn := dialChat(t, dialer, wsURL)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(dto.ClientEvent{
		Event:   dto.EventChatMessage,
		Message: &dto.ChatSendRequest{Name: "alice", Text: "   ", Room: "math101"},
	}))

	event := readServerEvent(t, conn, dto.EventError)
	require.Contains(t, event.Error, "invalid")

	resp, err := http.Get(baseURL + "/api/v2/chat/messages?room=math101")
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var history []dto.ChatMessageResponse
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Empty(t, history, "rejected messages must never be persisted")
}

func TestChatWebsocketJoinSecondRoom(t *testing.T) {
	baseURL, shutdown := startChatServer(t)
	defer shutdown()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v2/chat/ws?room=math101"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	conn := dialChat(t, dialer, wsURL)
	defer conn.Close()
	sender := dialChat(t, dialer, "ws"+strings.TrimPrefix(baseURL, "http")+"/api/v2/chat/ws?room=physics")
	defer sender.Close()

	require.NoError(t, conn.WriteJSON(dto.ClientEvent{Event: dto.EventJoinRoom, Room: "physics"}))

	// The join is processed asynchronously; send until the membership is live.
	received := make(chan dto.ServerEvent, 1)
	go func() {
		for {
			var event dto.ServerEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			if event.Event == dto.EventChatMessage && event.Message != nil && event.Message.Room == "physics" {
				received <- event
				return
			}
		}
	}()

	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case event := <-received:
			require.Equal(t, "hello physics", event.Message.Text)
			return
		case <-ticker.C:
			require.NoError(t, sender.WriteJSON(dto.ClientEvent{
				Event:   dto.EventChatMessage,
				Message: &dto.ChatSendRequest{Name: "bob", Text: "hello physics", Room: "physics"},
			}))
		case <-deadline:
			t.Fatal("expected the second-room membership to deliver messages")
		}
	}
}

func startChatServer(t *testing.T) (string, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ChatMessage{}, &models.Notification{}))

	validate := validator.New()
	broadcaster := service.NewBroadcaster(zerolog.Nop())
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), broadcaster, nil, "", nil, validate, zerolog.Nop())
	chatService := service.NewChatService(repository.NewMessageRepository(db), broadcaster, notifier, nil, "", nil, validate, time.Second, zerolog.Nop())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(middleware.CorrelationID())

	chatHandler := handler.NewChatHandler(chatService, validate, zerolog.Nop())
	chatHandler.Register(app.Group("/api/v2/chat"))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

func dialChat(t *testing.T, dialer websocket.Dialer, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func readServerEvent(t *testing.T, conn *websocket.Conn, want string) dto.ServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var event dto.ServerEvent
		require.NoError(t, conn.ReadJSON(&event))
		if event.Event == want {
			return event
		}
	}
}
