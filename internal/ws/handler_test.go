package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/image-contest/internal/engine"
	"github.com/DoyleJ11/image-contest/internal/hub"
	"github.com/DoyleJ11/image-contest/internal/types"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, zap.NewNop())

	s, err := engine.CreateContestState([]engine.ImageInput{
		{Filename: "a.png", URL: "blob:a"},
		{Filename: "b.png", URL: "blob:b"},
		{Filename: "c.png", URL: "blob:c"},
		{Filename: "d.png", URL: "blob:d"},
	})
	require.NoError(t, err)
	history, s, err := engine.Apply(s, engine.Command{Type: engine.CmdStartContest})
	require.NoError(t, err)
	_, err = h.Create(ctx, "WS0001", s, history)
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(h, Options{ReadTimeout: 5 * time.Second, WriteTimeout: time.Second}, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, "WS0001"
}

func dial(t *testing.T, srv *httptest.Server, code string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws?code=" + code
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeMsg(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

func TestHandler_RejectsMissingOrUnknownCode(t *testing.T) {
	srv, _ := newTestServer(t)

	for path, want := range map[string]int{"/ws": http.StatusBadRequest, "/ws?code=NOPE00": http.StatusNotFound} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestHandler_SnapshotOnJoinAndAfterDecision(t *testing.T) {
	srv, code := newTestServer(t)
	conn := dial(t, srv, code)

	first := readMsg(t, conn)
	require.Equal(t, "StateSnapshot", first.Type)
	require.NotNil(t, first.Contest)
	assert.Equal(t, code, first.Contest.Code)
	assert.Equal(t, "Round 1 - Match 1", first.Contest.Headline)

	writeMsg(t, conn, map[string]any{"type": "SelectWinner", "winner_id": 0, "version": 0})

	next := readMsg(t, conn)
	require.Equal(t, "StateSnapshot", next.Type)
	assert.Equal(t, 1, next.Contest.Version)
	assert.Equal(t, "Round 1 - Match 2", next.Contest.Headline)
}

func TestHandler_ErrorsGoOnlyToSender(t *testing.T) {
	srv, code := newTestServer(t)
	conn := dial(t, srv, code)
	_ = readMsg(t, conn)

	writeMsg(t, conn, map[string]any{"type": "SelectWinner", "winner_id": 3})
	msg := readMsg(t, conn)
	assert.Equal(t, "Error", msg.Type)
	assert.Contains(t, msg.Error, "not a contestant")

	writeMsg(t, conn, map[string]any{"type": "Shuffle"})
	msg = readMsg(t, conn)
	assert.Equal(t, "Error", msg.Type)
	assert.Equal(t, "unknown type", msg.Error)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	msg = readMsg(t, conn)
	assert.Equal(t, "bad json", msg.Error)
}

func TestHandler_WatchersSeeDecisions(t *testing.T) {
	srv, code := newTestServer(t)
	player := dial(t, srv, code)
	watcher := dial(t, srv, code)
	_ = readMsg(t, player)
	_ = readMsg(t, watcher)

	writeMsg(t, player, map[string]any{"type": "SelectWinner", "winner_id": 1})

	seen := readMsg(t, watcher)
	assert.Equal(t, "StateSnapshot", seen.Type)
	assert.Equal(t, 1, seen.Contest.Version)
	assert.True(t, seen.Contest.State.AllImages[0].Eliminated)
}
