package handlers_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritz541/iamwheel/internal/config"
	"github.com/ritz541/iamwheel/internal/handlers"
	"github.com/ritz541/iamwheel/internal/models"
	"github.com/ritz541/iamwheel/internal/services"
)

// stubStore is a minimal in-memory services.RoundStore for gateway tests.
type stubStore struct {
	mu    sync.Mutex
	round *models.Round
}

func (s *stubStore) Get(ctx context.Context) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *s.round
	return &snapshot, nil
}

func (s *stubStore) Update(ctx context.Context, patch services.RoundPatch) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Phase != nil {
		s.round.Phase = *patch.Phase
	}
	if patch.JoinTimer != nil {
		s.round.JoinTimer = *patch.JoinTimer
	}
	if patch.BreakTimer != nil {
		s.round.BreakTimer = *patch.BreakTimer
	}
	snapshot := *s.round
	return &snapshot, nil
}

func (s *stubStore) Reset(ctx context.Context) (*models.Round, error) {
	return s.Get(ctx)
}

func (s *stubStore) Join(ctx context.Context, userID string) (*models.Round, models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round.HasParticipant(userID) {
		return nil, models.Participant{}, services.ErrAlreadyJoined
	}
	participant := models.Participant{
		UserID:   userID,
		Username: "alice",
		Emoji:    models.EmojiForIndex(len(s.round.Participants)),
	}
	s.round.Participants = append(s.round.Participants, participant)
	snapshot := *s.round
	return &snapshot, participant, nil
}

func (s *stubStore) SaveOutcome(ctx context.Context, game *models.CompletedGame) (int64, error) {
	return 0, nil
}

func (s *stubStore) EntryFee() int64 { return 10 }

func newGatewayServer(t *testing.T, store services.RoundStore) (*httptest.Server, *handlers.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := handlers.NewHub()
	engine := services.NewEngine(store, nil, hub, &config.Config{LockWindow: 10})
	wsHandler := handlers.NewWebSocketHandler(engine, hub)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", "u1")
		c.Set("username", "alice")
		wsHandler.HandleWebSocket(c)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func dialGateway(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func TestGatewaySnapshotArrivesFirst(t *testing.T) {
	store := &stubStore{round: &models.Round{
		ID:           "r1",
		Phase:        models.PhaseJoining,
		JoinTimer:    120,
		Participants: []models.Participant{},
	}}
	server, hub := newGatewayServer(t, store)

	// Broadcast ticks compete with the connection handshake; the first
	// frame must still be the snapshot.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Tick(119, false)
			}
		}
	}()

	conn := dialGateway(t, server)

	var msg handlers.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "game_status", msg.Type)
}

func TestGatewayJoinRoundTrip(t *testing.T) {
	store := &stubStore{round: &models.Round{
		ID:           "r1",
		Phase:        models.PhaseJoining,
		JoinTimer:    120,
		Participants: []models.Participant{},
	}}
	server, _ := newGatewayServer(t, store)
	conn := dialGateway(t, server)

	var msg handlers.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "game_status", msg.Type)

	require.NoError(t, conn.WriteJSON(handlers.Message{Type: "join_game"}))

	response := readUntil(t, conn, "join_game_response")
	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["success"])

	// A second join over the same connection is refused.
	require.NoError(t, conn.WriteJSON(handlers.Message{Type: "join_game"}))
	response = readUntil(t, conn, "join_game_response")
	data, ok = response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, data["success"])
}

func TestGatewayUnknownMessageType(t *testing.T) {
	store := &stubStore{round: &models.Round{
		ID:           "r1",
		Phase:        models.PhaseJoining,
		JoinTimer:    120,
		Participants: []models.Participant{},
	}}
	server, _ := newGatewayServer(t, store)
	conn := dialGateway(t, server)

	var msg handlers.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "game_status", msg.Type)

	require.NoError(t, conn.WriteJSON(handlers.Message{Type: "bogus"}))
	response := readUntil(t, conn, "error")
	assert.NotNil(t, response.Data)
}

// readUntil skips broadcast frames until a message of the wanted type
// arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) *handlers.Message {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg handlers.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == wantType {
			return &msg
		}
	}
	t.Fatalf("no %s message within 20 frames", wantType)
	return nil
}
