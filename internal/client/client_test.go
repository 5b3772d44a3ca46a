package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/esccup-draft/internal/auth"
	"github.com/Billy-Davies-2/esccup-draft/internal/dal"
	"github.com/Billy-Davies-2/esccup-draft/internal/draft"
	"github.com/Billy-Davies-2/esccup-draft/internal/handlers"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

var _ draft.Persistence = (*Client)(nil)

func newServer(t *testing.T, provider auth.Provider) (*httptest.Server, *dal.MemoryDAL) {
	t.Helper()
	store := dal.NewMemoryDAL()
	events := pubsub.New()
	t.Cleanup(func() { events.Close() })

	r := chi.NewRouter()
	r.Use(auth.Middleware(provider))
	provider.Routes(r)
	handlers.NewAPIHandlers(store, events).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestListAndAssign(t *testing.T) {
	srv, _ := newServer(t, auth.NewMockAuth())
	c := New(srv.URL)
	ctx := context.Background()

	teams, err := c.ListTeams(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 6)

	require.NoError(t, c.Assign(ctx, models.AssignRequest{PlayerID: 4, TeamID: models.Int64(teams[0].ID)}))

	standby, err := c.ListStandby(ctx)
	require.NoError(t, err)
	assert.Len(t, standby, 29)
}

func TestStatusErrors(t *testing.T) {
	srv, _ := newServer(t, auth.NewMockAuth())
	c := New(srv.URL)

	err := c.Assign(context.Background(), models.AssignRequest{PlayerID: 404, TeamID: models.Int64(1)})
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Message, "not found")
	assert.Equal(t, BreakerClosed, c.State())
}

func TestLoginWithPassword(t *testing.T) {
	srv, store := newServer(t, auth.NewPasswordAuth("hunter2", "signing-key", time.Hour))
	c := New(srv.URL)
	ctx := context.Background()

	err := c.Assign(ctx, models.AssignRequest{PlayerID: 1, TeamID: models.Int64(1)})
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Error(t, c.Login(ctx, "wrong"))
	require.NoError(t, c.Login(ctx, "hunter2"))
	require.NoError(t, c.Assign(ctx, models.AssignRequest{PlayerID: 1, TeamID: models.Int64(1)}))

	p, err := store.GetPlayer(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.TeamID)
	assert.Equal(t, int64(1), *p.TeamID)
}

func TestSessionSavesThroughClient(t *testing.T) {
	srv, store := newServer(t, auth.NewMockAuth())
	c := New(srv.URL)
	ctx := context.Background()

	session := draft.NewSession(draft.Empty(), draft.NewSynchronizer(c), draft.DefaultRules())
	require.NoError(t, session.Reload(ctx))

	require.True(t, session.OnDragStartRaw("player-1"))
	in := session.OnDragEndRaw("player-1", "team-2")
	require.True(t, in.Mutates(), in.String())
	require.NoError(t, session.SaveAll(ctx))

	p, err := store.GetPlayer(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.TeamID)
	assert.Equal(t, int64(2), *p.TeamID)
}

func TestBreakerTripsOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithBreaker(NewBreaker(2, time.Hour)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.ListTeams(ctx)
		require.Error(t, err)
	}
	_, err := c.ListTeams(ctx)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, BreakerOpen, c.State())
}

func TestUnauthorizedMatchesStdlibErrors(t *testing.T) {
	srv, _ := newServer(t, auth.NewPasswordAuth("hunter2", "signing-key", time.Hour))
	c := New(srv.URL)

	err := c.AssignAll(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrUnauthorized))
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var se *StatusError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	assert.False(t, (&StatusError{Code: http.StatusNotFound}).Is(ErrUnauthorized))
	assert.True(t, (&StatusError{Code: http.StatusForbidden}).Is(ErrUnauthorized))
}
