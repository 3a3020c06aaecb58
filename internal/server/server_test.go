package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lifegame/life-server-go/internal/auth"
	"github.com/lifegame/life-server-go/internal/config"
	"github.com/lifegame/life-server-go/internal/content"
	"github.com/lifegame/life-server-go/internal/game"
	"github.com/lifegame/life-server-go/internal/repository"
	"github.com/lifegame/life-server-go/internal/session"
	"github.com/lifegame/life-server-go/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// memUserStore backs the user manager without a database.
type memUserStore struct {
	users map[string]repository.User
}

func (s *memUserStore) Create(_ context.Context, u repository.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (repository.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id string) (repository.User, error) {
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, id, hash string) error {
	u := s.users[id]
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *memUserStore) TouchLastSeen(_ context.Context, _ string) error { return nil }

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (c *wsClient) call(req Request) Response {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(req))

	// Push frames arrive interleaved with responses; skip them.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := c.conn.ReadMessage()
		require.NoError(c.t, err)

		var probe struct {
			Op string `json:"op"`
		}
		require.NoError(c.t, json.Unmarshal(raw, &probe))
		if probe.Op == "event" {
			continue
		}

		var resp Response
		require.NoError(c.t, json.Unmarshal(raw, &resp))
		return resp
	}
	c.t.Fatal("no response before deadline")
	return Response{}
}

func newTestServer(t *testing.T) (*wsClient, *Server) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	lib, err := content.LoadLibrary()
	require.NoError(t, err)
	factory := content.NewFactory(lib, content.NewLCG(7))
	engine := game.NewEngine(factory, logger)

	sessions := session.NewManager(time.Minute, logger)
	users := user.NewManager(
		&memUserStore{users: make(map[string]repository.User)},
		config.ValidationConfig{UsernameMinLength: 3, UsernameMaxLength: 24, PasswordMinLength: 8},
		4, // low bcrypt cost for tests
		logger,
	)

	cfg := config.ServerConfig{
		WebSocket: config.WebSocketConfig{
			Path:            "/ws",
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			WriteTimeout:    time.Second,
			PingInterval:    30 * time.Second,
		},
	}
	gameCfg := config.GameConfig{
		DefaultDifficulty: "normal",
		StartingVitality:  20,
		StartingHandSize:  5,
		MaxHandSize:       7,
		DreamCardCount:    3,
		VictoryThreshold:  20,
	}

	srv := New(cfg, gameCfg, engine, sessions, users, auth.NewTokenStore(time.Minute), nil, nil, logger)
	srv.SetCatalog(lib)

	ts := httptest.NewServer(http.HandlerFunc(srv.serveWS))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &wsClient{t: t, conn: conn}, srv
}

func login(t *testing.T, c *wsClient) string {
	t.Helper()
	resp := c.call(Request{Op: "register", Data: json.RawMessage(
		`{"username":"alice","password":"sufficiently-long"}`)})
	require.True(t, resp.OK, resp.Error)

	resp = c.call(Request{Op: "login", Data: json.RawMessage(
		`{"username":"alice","password":"sufficiently-long"}`)})
	require.True(t, resp.OK, resp.Error)

	data := resp.Data.(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestUnknownOp(t *testing.T) {
	c, _ := newTestServer(t)
	resp := c.call(Request{Op: "bogus"})
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown op", resp.Error)
}

func TestAuthRequired(t *testing.T) {
	c, _ := newTestServer(t)
	resp := c.call(Request{Op: "create_game", Token: "not-a-session"})
	assert.False(t, resp.OK)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	c, _ := newTestServer(t)
	login(t, c)

	resp := c.call(Request{Op: "login", Data: json.RawMessage(
		`{"username":"alice","password":"wrong-password"}`)})
	assert.False(t, resp.OK)
}

func TestGameRoundTrip(t *testing.T) {
	c, srv := newTestServer(t)
	token := login(t, c)

	resp := c.call(Request{Op: "create_game", Token: token})
	require.True(t, resp.OK, resp.Error)

	state := resp.Data.(map[string]any)
	gameID, _ := state["game_id"].(string)
	require.NotEmpty(t, gameID)
	assert.Equal(t, "IN_PROGRESS", state["status"])
	assert.Equal(t, float64(1), state["turn"])

	resp = c.call(Request{Op: "start_challenge", Token: token, GameID: gameID})
	require.True(t, resp.OK, resp.Error)
	state = resp.Data.(map[string]any)
	require.NotNil(t, state["current_challenge"])

	hand := state["hand"].([]any)
	var ids []string
	for _, entry := range hand {
		ids = append(ids, entry.(map[string]any)["id"].(string))
	}
	payload, _ := json.Marshal(map[string]any{"card_ids": ids})
	resp = c.call(Request{Op: "select_cards", Token: token, GameID: gameID, Data: payload})
	require.True(t, resp.OK, resp.Error)

	resp = c.call(Request{Op: "resolve_challenge", Token: token, GameID: gameID})
	require.True(t, resp.OK, resp.Error)

	resp = c.call(Request{Op: "next_turn", Token: token, GameID: gameID})
	require.True(t, resp.OK, resp.Error)
	state = resp.Data.(map[string]any)
	assert.Equal(t, float64(2), state["turn"])

	assert.Equal(t, 1, srv.engine.GameCount())
}

func TestDailyChallenges(t *testing.T) {
	c, _ := newTestServer(t)
	token := login(t, c)

	resp := c.call(Request{Op: "daily_challenges", Token: token})
	require.True(t, resp.OK, resp.Error)

	lineup := resp.Data.(map[string]any)
	for _, stage := range []string{"YOUTH", "MIDDLE", "FULFILLMENT"} {
		picks, ok := lineup[stage].([]any)
		require.True(t, ok, "missing %s lineup", stage)
		assert.Len(t, picks, 3)
	}
}

func TestPasswordReset(t *testing.T) {
	c, _ := newTestServer(t)
	login(t, c)

	resp := c.call(Request{Op: "request_password_reset", Data: json.RawMessage(
		`{"username":"alice"}`)})
	require.True(t, resp.OK, resp.Error)
	token, _ := resp.Data.(map[string]any)["reset_token"].(string)
	require.NotEmpty(t, token)

	payload, _ := json.Marshal(map[string]string{"token": token, "password": "brand-new-secret"})
	resp = c.call(Request{Op: "reset_password", Data: payload})
	require.True(t, resp.OK, resp.Error)

	// The token is single-use.
	resp = c.call(Request{Op: "reset_password", Data: payload})
	assert.False(t, resp.OK)

	resp = c.call(Request{Op: "login", Data: json.RawMessage(
		`{"username":"alice","password":"brand-new-secret"}`)})
	assert.True(t, resp.OK, resp.Error)

	resp = c.call(Request{Op: "login", Data: json.RawMessage(
		`{"username":"alice","password":"sufficiently-long"}`)})
	assert.False(t, resp.OK)
}

func TestSaveDisabledWithoutDatabase(t *testing.T) {
	c, _ := newTestServer(t)
	token := login(t, c)

	resp := c.call(Request{Op: "create_game", Token: token})
	require.True(t, resp.OK, resp.Error)
	gameID := resp.Data.(map[string]any)["game_id"].(string)

	resp = c.call(Request{Op: "save_game", Token: token, GameID: gameID})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "disabled")
}
