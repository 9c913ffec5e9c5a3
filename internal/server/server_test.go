package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *GameService) {
	t.Helper()
	logger := log.New(io.Discard)
	store := NewStore()
	hub := NewHub(logger)
	svc := NewGameService(logger, store, hub, quartz.NewMock(t), 99, DefaultTiming())
	srv := NewServer(logger, DefaultServerConfig(), svc, hub)

	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)
	return ts, svc
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndFetchGame(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/games", map[string]any{
		"players": []map[string]string{
			{"name": "alice"},
			{"name": "bot one", "bot": "naive"},
			{"name": "bot two", "bot": "statistical"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[GameView](t, resp)
	assert.Len(t, created.ID, 3)
	assert.Equal(t, "IN_PROGRESS", created.State)

	getResp, err := http.Get(ts.URL + "/api/games/" + created.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	fetched := decode[GameView](t, getResp)
	assert.Equal(t, created.ID, fetched.ID)
	for _, p := range fetched.Players {
		assert.Empty(t, p.Dice)
	}
}

func TestGetGameErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t)

	// Well-formed id, no such game.
	resp, err := http.Get(ts.URL + "/api/games/zzz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Malformed id.
	resp, err = http.Get(ts.URL + "/api/games/TOOLONG")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBidErrorStatuses(t *testing.T) {
	ts, svc := newTestServer(t)

	view, err := svc.CreateGame([]PlayerSpec{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	require.NoError(t, err)

	// Out-of-turn bid is a 400.
	var wrongPlayer string
	for _, p := range view.Players {
		if p.ID != view.CurrentPlayerID {
			wrongPlayer = p.ID
			break
		}
	}
	resp := postJSON(t, ts.URL+"/api/games/"+view.ID+"/bid", bidRequest{
		PlayerID: wrongPlayer, Quantity: 1, FaceValue: 2,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Doubt with no bid on the table is a 409.
	resp = postJSON(t, ts.URL+"/api/games/"+view.ID+"/doubt", actionRequest{
		PlayerID: view.CurrentPlayerID,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLobbyOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/games/lobby", createLobbyRequest{MaxPlayers: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lobby := decode[GameView](t, resp)

	join := postJSON(t, ts.URL+"/api/games/"+lobby.ID+"/join", joinRequest{Name: "alice"})
	require.Equal(t, http.StatusOK, join.StatusCode)
	joined := decode[joinResponse](t, join)
	assert.NotEmpty(t, joined.PlayerID)

	join2 := postJSON(t, ts.URL+"/api/games/"+lobby.ID+"/join", joinRequest{Name: "bob", Bot: "naive"})
	require.Equal(t, http.StatusOK, join2.StatusCode)

	start := postJSON(t, ts.URL+"/api/games/"+lobby.ID+"/start", struct{}{})
	require.Equal(t, http.StatusOK, start.StatusCode)
	started := decode[GameView](t, start)
	assert.Equal(t, "IN_PROGRESS", started.State)

	// Startup is rejected once underway.
	again := postJSON(t, ts.URL+"/api/games/"+lobby.ID+"/join", joinRequest{Name: "carol"})
	assert.Equal(t, http.StatusBadRequest, again.StatusCode)
}
