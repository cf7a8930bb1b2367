package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/handler"
	"github.com/noah-isme/gema-chat-service/internal/service"
)

type mockChatService struct {
	lastQuery dto.ChatHistoryQuery
	history   []dto.ChatMessageResponse
	err       error
}

func (m *mockChatService) ServeConnection(conn *fiberws.Conn, _ service.ChatConnectionOptions) {
	_ = conn.Close()
}

func (m *mockChatService) History(_ context.Context, query dto.ChatHistoryQuery) ([]dto.ChatMessageResponse, error) {
	m.lastQuery = query
	return m.history, m.err
}

func (m *mockChatService) Start(context.Context) {}

func newChatTestApp(svc *mockChatService) *fiber.App {
	app := fiber.New()
	handler.NewChatHandler(svc, validator.New(), zerolog.New(io.Discard)).Register(app.Group("/api/v2/chat"))
	return app
}

func TestChatHandler_RecentMessages(t *testing.T) {
	svc := &mockChatService{history: []dto.ChatMessageResponse{
		{ID: 1, Room: "math101", Name: "alice", Text: "hello", CreatedAt: time.Now()},
		{ID: 2, Room: "math101", Name: "bob", Text: "hi", CreatedAt: time.Now()},
	}}
	app := newChatTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/chat/messages?room=math101&limit=25", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                      `json:"success"`
		Data    []dto.ChatMessageResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.True(t, response.Success)
	require.Len(t, response.Data, 2)
	require.Equal(t, "math101", svc.lastQuery.Room)
	require.Equal(t, 25, svc.lastQuery.Limit)
}

func TestChatHandler_RecentMessagesRequiresRoom(t *testing.T) {
	app := newChatTestApp(&mockChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/chat/messages", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatHandler_RecentMessagesRejectsOversizedLimit(t *testing.T) {
	app := newChatTestApp(&mockChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/chat/messages?room=math101&limit=5000", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatHandler_WebsocketRouteRequiresUpgrade(t *testing.T) {
	app := newChatTestApp(&mockChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/chat/ws", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
