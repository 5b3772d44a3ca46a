package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/esccup-draft/internal/auth"
	"github.com/Billy-Davies-2/esccup-draft/internal/bracket"
	"github.com/Billy-Davies-2/esccup-draft/internal/dal"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

type testEnv struct {
	store  *dal.MemoryDAL
	events *pubsub.Hub
	router http.Handler
}

func newEnv(t *testing.T, provider auth.Provider) *testEnv {
	t.Helper()
	store := dal.NewMemoryDAL()
	events := pubsub.New()
	t.Cleanup(func() { events.Close() })

	api := NewAPIHandlers(store, events)
	api.keepalive = 50 * time.Millisecond

	r := chi.NewRouter()
	r.Use(auth.Middleware(provider))
	provider.Routes(r)
	api.Routes(r)
	NewHealth(store.Ping, nil).Routes(r)
	return &testEnv{store: store, events: events, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestListDraftTeamsAndStandby(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())

	w := env.do(t, http.MethodGet, "/api/draft/teams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	teams := decodeBody[[]models.Team](t, w)
	require.Len(t, teams, 6)
	assert.Equal(t, "Team 1", teams[0].Name)
	assert.Empty(t, teams[0].Players)

	w = env.do(t, http.MethodGet, "/api/draft/standby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]models.Player](t, w), 30)
}

func TestAssignPublishesEvent(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())
	events, cancel := env.events.Subscribe()
	defer cancel()

	w := env.do(t, http.MethodPost, "/api/draft/assign", models.AssignRequest{PlayerID: 1, TeamID: models.Int64(2)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	select {
	case e := <-events:
		assert.Equal(t, pubsub.TypeDraftAssign, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	teams, err := env.store.ListTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams[1].Players, 1)
	assert.Equal(t, int64(1), teams[1].Players[0].ID)
}

func TestAssignErrors(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())
	for i := int64(1); i <= dal.TeamCapacity; i++ {
		require.NoError(t, env.store.AssignPlayer(context.Background(), models.AssignRequest{PlayerID: i, TeamID: models.Int64(1)}))
	}

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"team full", models.AssignRequest{PlayerID: 6, TeamID: models.Int64(1)}, http.StatusConflict},
		{"unknown player", models.AssignRequest{PlayerID: 999, TeamID: models.Int64(2)}, http.StatusNotFound},
		{"unknown team", models.AssignRequest{PlayerID: 6, TeamID: models.Int64(99)}, http.StatusNotFound},
		{"missing player", `{"teamId":1}`, http.StatusBadRequest},
		{"malformed", `{"playerId":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/draft/assign", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestAssignAll(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())

	batch := []models.AssignRequest{
		{PlayerID: 3, TeamID: models.Int64(1)},
		{PlayerID: 1, TeamID: models.Int64(1)},
		{PlayerID: 2, TeamID: models.Int64(2)},
	}
	w := env.do(t, http.MethodPost, "/api/draft/assign/all", batch)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	teams, err := env.store.ListTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams[0].Players, 2)
	assert.Equal(t, int64(3), teams[0].Players[0].ID)
	assert.Equal(t, int64(1), teams[0].Players[1].ID)
	assert.Len(t, teams[1].Players, 1)
}

func TestAssignAllRejectsInvalidBatch(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())

	w := env.do(t, http.MethodPost, "/api/draft/assign/all", []models.AssignRequest{
		{PlayerID: 1, TeamID: models.Int64(1)},
		{PlayerID: 1, TeamID: models.Int64(2)},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/draft/assign/all", `[{"playerId":0}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	standby, err := env.store.ListStandby(context.Background())
	require.NoError(t, err)
	assert.Len(t, standby, 30)
}

func TestWritesRequireAdmin(t *testing.T) {
	env := newEnv(t, auth.NewPasswordAuth("secret", "signing-key", time.Hour))

	w := env.do(t, http.MethodGet, "/api/draft/teams", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/draft/assign", models.AssignRequest{PlayerID: 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/players", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/tournament/create-empty", map[string]int{"teamCount": 4})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordLoginGrantsWrites(t *testing.T) {
	env := newEnv(t, auth.NewPasswordAuth("secret", "signing-key", time.Hour))

	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decodeBody[map[string]string](t, w)

	body, err := json.Marshal(models.AssignRequest{PlayerID: 1, TeamID: models.Int64(1)})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/draft/assign", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+login["token"])
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPlayerAdmin(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())

	w := env.do(t, http.MethodPost, "/api/admin/players", map[string]string{
		"name":     "Faker#KR1",
		"position": "mid",
		"tier":     "Challenger",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[models.Player](t, w)
	assert.Equal(t, models.PositionMid, created.Position)
	assert.Equal(t, "Challenger", created.HighestTier)
	assert.Nil(t, created.TeamID)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/admin/players/%d", created.ID), map[string]string{
		"name":     "Faker#KR1",
		"position": "TOP",
		"tier":     "Master",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PositionTop, decodeBody[models.Player](t, w).Position)

	w = env.do(t, http.MethodPost, "/api/admin/players", map[string]string{"name": "X", "position": "BOT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/players/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/players/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/admin/players", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/admin/players", nil)
	assert.Empty(t, decodeBody[[]models.Player](t, w))
}

func TestTeamAdmin(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())
	require.NoError(t, env.store.AssignPlayer(context.Background(), models.AssignRequest{PlayerID: 1, TeamID: models.Int64(6)}))

	w := env.do(t, http.MethodPost, "/api/admin/teams", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Team 7", decodeBody[models.Team](t, w).Name)

	w = env.do(t, http.MethodPut, "/api/admin/teams/6", map[string]string{"name": "Blue Wolves"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Blue Wolves", decodeBody[models.Team](t, w).Name)

	w = env.do(t, http.MethodPut, "/api/admin/teams/6", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/admin/teams/6", nil)
	require.Equal(t, http.StatusOK, w.Code)

	standby, err := env.store.ListStandby(context.Background())
	require.NoError(t, err)
	assert.Len(t, standby, 30)
	assert.Equal(t, int64(1), standby[len(standby)-1].ID)

	w = env.do(t, http.MethodPut, "/api/admin/teams/abc", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchEndpoints(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())

	w := env.do(t, http.MethodPost, "/api/matches", map[string]any{
		"stage":      "Group A",
		"blueTeamId": 1,
		"redTeamId":  2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	m := decodeBody[models.Match](t, w)
	assert.Equal(t, "Team 1", m.BlueTeamName)
	assert.Equal(t, models.MatchScheduled, m.Status)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/matches/%d", m.ID), map[string]any{
		"stage":        "Group A",
		"blueTeamId":   1,
		"redTeamId":    2,
		"winnerTeamId": 2,
		"score":        "0-1",
		"status":       "FINISHED",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "0-1", decodeBody[models.Match](t, w).Score)

	w = env.do(t, http.MethodPatch, fmt.Sprintf("/api/matches/%d/teams", m.ID), map[string]any{"blueTeamId": 3, "redTeamId": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decodeBody[models.Match](t, w)
	assert.Equal(t, int64(3), *patched.BlueTeamID)
	assert.Nil(t, patched.RedTeamID)

	w = env.do(t, http.MethodPost, "/api/matches", map[string]any{"stage": "x", "blueTeamId": 77})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/matches", nil)
	assert.Len(t, decodeBody[[]models.Match](t, w), 1)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/matches/%d", m.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/matches/%d", m.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTournamentFlow(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())
	_, err := env.store.CreateMatch(context.Background(), &models.Match{Stage: "Scrim"})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/tournament/create-empty", map[string]int{"teamCount": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/tournament/create-empty", map[string]int{"teamCount": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[[]models.Match](t, w)
	require.Len(t, created, 3)
	final, semi := created[0], created[1]
	assert.Equal(t, bracket.StageFinal, final.Stage)

	w = env.do(t, http.MethodGet, "/api/tournament", nil)
	assert.Len(t, decodeBody[[]models.Match](t, w), 3)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/tournament/%d", semi.ID), map[string]any{
		"blueTeamId": 1,
		"redTeamId":  2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/tournament/%d", semi.ID), map[string]any{"winnerTeamId": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/tournament/%d", semi.ID), map[string]any{"winnerTeamId": 2, "score": "1-2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeBody[struct {
		Match models.Match  `json:"match"`
		Next  *models.Match `json:"next"`
	}](t, w)
	assert.Equal(t, models.MatchFinished, result.Match.Status)
	require.NotNil(t, result.Next)
	assert.Equal(t, final.ID, result.Next.ID)
	require.NotNil(t, result.Next.BlueTeamID)
	assert.Equal(t, int64(2), *result.Next.BlueTeamID)

	w = env.do(t, http.MethodPut, "/api/tournament/1", map[string]any{"score": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())
	w := env.do(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":true`)
}

func TestHealthEndpoints(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())

	for _, path := range []string{"/api/health", "/healthz", "/readyz"} {
		w := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	h := NewHealth(func(context.Context) error { return errors.New("down") }, map[string]Checker{
		"nats": func(context.Context) error { return nil },
	})
	r := chi.NewRouter()
	h.Routes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
	assert.Contains(t, w.Body.String(), `"nats":{"status":"healthy"}`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.Wrap(dal.ErrNotFound, "player 1"), http.StatusNotFound},
		{errors.Wrap(dal.ErrTeamFull, "team 1"), http.StatusConflict},
		{dal.ErrInvalidBatch, http.StatusBadRequest},
		{bracket.ErrInvalidTeamCount, http.StatusBadRequest},
		{auth.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq")
}

func TestEventsSSE(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readData := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		return ""
	}
	assert.Contains(t, readData(), "connected")

	require.Eventually(t, func() bool { return env.events.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	env.events.Publish(pubsub.NewEvent(pubsub.TypeTeamAdded, map[string]int{"id": 7}))

	var e pubsub.Event
	require.NoError(t, json.Unmarshal([]byte(readData()), &e))
	assert.Equal(t, pubsub.TypeTeamAdded, e.Type)
}

func TestEventsWS(t *testing.T) {
	env := newEnv(t, auth.NewMockAuth())
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello map[string]string
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])

	require.Eventually(t, func() bool { return env.events.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	env.events.Publish(pubsub.NewEvent(pubsub.TypeDraftAssignAll, map[string]int{"assignments": 2}))

	var e pubsub.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, pubsub.TypeDraftAssignAll, e.Type)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.Eventually(t, func() bool { return env.events.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
