package fuzz

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Billy-Davies-2/esccup-draft/internal/dal"
	"github.com/Billy-Davies-2/esccup-draft/internal/draft"
	"github.com/Billy-Davies-2/esccup-draft/internal/handlers"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

func newAPI(t *testing.T) (*handlers.APIHandlers, *dal.MemoryDAL) {
	store := dal.NewMemoryDAL()
	events := pubsub.New()
	t.Cleanup(func() { events.Close() })
	return handlers.NewAPIHandlers(store, events), store
}

func post(data string) (*httptest.ResponseRecorder, *http.Request) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(data))
	req.Header.Set("Content-Type", "application/json")
	return httptest.NewRecorder(), req
}

// checkBoard fails when a request left the store with a player listed
// twice, missing, or on an over-full team
func checkBoard(t *testing.T, store *dal.MemoryDAL) {
	ctx := context.Background()
	teams, err := store.ListTeams(ctx)
	if err != nil {
		t.Fatal(err)
	}
	standby, err := store.ListStandby(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := draft.NewRoster(teams, standby).Validate(draft.DefaultRules()); err != nil {
		t.Fatalf("board invariant broken: %v", err)
	}
	all, err := store.ListPlayers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n := draft.NewRoster(teams, standby).PlayerCount(); n != len(all) {
		t.Fatalf("board lists %d players, store has %d", n, len(all))
	}
}

// FuzzHTTPAssign fuzzes the single assignment endpoint
func FuzzHTTPAssign(f *testing.F) {
	f.Add(`{"playerId":1,"teamId":1}`)
	f.Add(`{"playerId":2,"teamId":null}`)
	f.Add(`{"playerId":"1","teamId":"x"}`)
	f.Add(`{"playerId":-4}`)

	f.Fuzz(func(t *testing.T, data string) {
		api, store := newAPI(t)
		w, req := post(data)
		api.Assign(w, req)

		if w.Code >= http.StatusInternalServerError {
			t.Fatalf("status %d for %q", w.Code, data)
		}
		checkBoard(t, store)
	})
}

// FuzzHTTPAssignAll fuzzes the batch endpoint; a rejected batch must leave
// the board untouched and an accepted one must keep it valid
func FuzzHTTPAssignAll(f *testing.F) {
	f.Add(`[{"playerId":1,"teamId":1},{"playerId":2,"teamId":1}]`)
	f.Add(`[{"playerId":1,"teamId":1},{"playerId":1,"teamId":2}]`)
	f.Add(`[{"playerId":1,"teamId":99}]`)
	f.Add(`[]`)
	f.Add(`{"playerId":1}`)

	f.Fuzz(func(t *testing.T, data string) {
		api, store := newAPI(t)
		before, err := store.ListPlayers(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		w, req := post(data)
		api.AssignAll(w, req)

		if w.Code >= http.StatusInternalServerError {
			t.Fatalf("status %d for %q", w.Code, data)
		}
		checkBoard(t, store)

		if w.Code != http.StatusOK {
			after, err := store.ListPlayers(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			b, _ := json.Marshal(before)
			a, _ := json.Marshal(after)
			if !bytes.Equal(a, b) {
				t.Fatalf("rejected batch %q changed the board", data)
			}
		}
	})
}

// FuzzHTTPAddPlayer fuzzes player creation
func FuzzHTTPAddPlayer(f *testing.F) {
	f.Add(`{"name":"Faker#KR1","position":"MID","tier":"Challenger"}`)
	f.Add(`{"name":"","position":"TOP"}`)
	f.Add(`{"name":"x","position":"BOT","opggUrl":"not a url"}`)

	f.Fuzz(func(t *testing.T, data string) {
		api, store := newAPI(t)
		w, req := post(data)
		api.AddPlayer(w, req)

		if w.Code >= http.StatusInternalServerError {
			t.Fatalf("status %d for %q", w.Code, data)
		}
		checkBoard(t, store)
	})
}

// FuzzHTTPCreateEmptyBracket fuzzes bracket generation
func FuzzHTTPCreateEmptyBracket(f *testing.F) {
	f.Add(`{"teamCount":2}`)
	f.Add(`{"teamCount":8}`)
	f.Add(`{"teamCount":-1}`)
	f.Add(`{"teamCount":"4"}`)

	f.Fuzz(func(t *testing.T, data string) {
		api, _ := newAPI(t)
		w, req := post(data)
		api.CreateEmptyBracket(w, req)

		if w.Code >= http.StatusInternalServerError {
			t.Fatalf("status %d for %q", w.Code, data)
		}
	})
}
