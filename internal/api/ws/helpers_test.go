package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chess-relay/internal/game"
	"chess-relay/internal/metrics"
	"chess-relay/internal/room"
	"chess-relay/internal/shared"
	"chess-relay/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		KeepAlive:          20 * time.Second,
		MaxKeepAliveMisses: 3,
		SendBuffer:         16,
		EventRate:          1000,
		EventBurst:         1000,
	}
}

type testServer struct {
	url     string
	hub     *Hub
	reg     *room.Registry
	clock   *clockwork.FakeClock
	metrics *metrics.RelayMetrics
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.NewRelayMetrics(prometheus.NewRegistry())
	clock := clockwork.NewFakeClock()
	hub := NewHub(m)
	reg := room.NewRegistry(store.NewMemoryStore(), game.NewChessEngine(), hub, clock, m)

	r := gin.New()
	r.GET("/ws", NewHandler(hub, reg, clock, opts, m).HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return &testServer{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:     hub,
		reg:     reg,
		clock:   clock,
		metrics: m,
	}
}

type peer struct {
	t    *testing.T
	conn *websocket.Conn
}

type frame struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func (ts *testServer) dial(t *testing.T, header http.Header) *peer {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(ts.url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return &peer{t: t, conn: conn}
}

func (p *peer) send(action string, data any) {
	p.t.Helper()
	b, err := shared.Encode(shared.Message{Action: action, Data: data})
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, b))
}

func (p *peer) sendRaw(s string) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, []byte(s)))
}

func (p *peer) next() frame {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	var f frame
	require.NoError(p.t, json.Unmarshal(data, &f))
	return f
}

// expect reads the next frame, requires its action and decodes its payload into v.
func (p *peer) expect(action string, v any) {
	p.t.Helper()
	f := p.next()
	require.Equal(p.t, action, f.Action, "payload: %s", f.Data)
	if v != nil {
		require.NoError(p.t, json.Unmarshal(f.Data, v))
	}
}

// silent requires that nothing arrives within a short window. A timed out read is fatal
// to a gorilla connection, so this must be the last read on p.
func (p *peer) silent() {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, data, err := p.conn.ReadMessage()
	require.Error(p.t, err, "unexpected frame: %s", data)
}

func move(roomID, from, to string) shared.MoveRequest {
	return shared.MoveRequest{RoomID: roomID, Move: game.Action{From: from, To: to}}
}

// startGame seats two peers in a fresh session and consumes the opening frames.
func (ts *testServer) startGame(t *testing.T) (alice, bob *peer, id string) {
	t.Helper()
	alice, bob = ts.dial(t, nil), ts.dial(t, nil)

	var created shared.SessionAssigned
	alice.send(shared.ActionCreateRoom, nil)
	alice.expect(shared.EventSessionCreated, &created)

	bob.send(shared.ActionJoinRoom, shared.RoomRequest{RoomID: created.ID})
	bob.expect(shared.EventSessionJoined, nil)
	bob.expect(shared.EventStateUpdate, nil)
	alice.expect(shared.EventStateUpdate, nil)
	return alice, bob, created.ID
}

// play submits a move and waits until both sides have seen the resulting position.
func play(mover, other *peer, id, from, to string) {
	mover.t.Helper()
	mover.send(shared.ActionMove, move(id, from, to))
	mover.expect(shared.EventStateUpdate, nil)
	other.expect(shared.EventStateUpdate, nil)
}
