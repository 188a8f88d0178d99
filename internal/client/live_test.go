package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/profileapp-be/internal/models"
)

func changeMessage(t *testing.T, action string, payload interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"action": action, "payload": payload})
	require.NoError(t, err)
	return b
}

func TestApplyRemote(t *testing.T) {
	store := NewStore(newFakeAPI(seedProfiles()...))
	require.NoError(t, store.FetchProfiles(context.Background(), models.ProfileFilter{}))
	current := seedProfiles()[1]
	store.SetCurrentProfile(&current)

	newest := models.Profile{ID: "4", Name: "Dora", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.ApplyRemote(changeMessage(t, models.ActionProfileCreated, newest)))
	// Replaying the same creation does not duplicate it.
	require.NoError(t, store.ApplyRemote(changeMessage(t, models.ActionProfileCreated, newest)))
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(store.Snapshot().Profiles))

	renamed := seedProfiles()[1]
	renamed.Name = "Robert"
	require.NoError(t, store.ApplyRemote(changeMessage(t, models.ActionProfileUpdated, renamed)))
	snap := store.Snapshot()
	assert.Equal(t, "Robert", snap.Profiles[2].Name)
	assert.Equal(t, "Robert", snap.CurrentProfile.Name)

	require.NoError(t, store.ApplyRemote(changeMessage(t, models.ActionProfileDeleted, map[string]string{"id": "2"})))
	snap = store.Snapshot()
	assert.Equal(t, []string{"4", "3", "1"}, ids(snap.Profiles))
	assert.Nil(t, snap.CurrentProfile)

	// An update for a profile the mirror has not seen lands in date order.
	older := models.Profile{ID: "0", Name: "Zed", CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.ApplyRemote(changeMessage(t, models.ActionProfileUpdated, older)))
	assert.Equal(t, []string{"4", "3", "1", "0"}, ids(store.Snapshot().Profiles))

	require.NoError(t, store.ApplyRemote([]byte(`{"action":"pong"}`)))
	assert.Error(t, store.ApplyRemote([]byte(`not json`)))
	assert.Error(t, store.ApplyRemote(changeMessage(t, models.ActionProfileDeleted, map[string]string{})))
}

func TestFollow(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, changeMessage(t, models.ActionProfileCreated,
			models.Profile{ID: "9", Name: "Live", CreatedAt: time.Now()}))
		conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		conn.WriteMessage(websocket.TextMessage, changeMessage(t, models.ActionProfileDeleted,
			map[string]string{"id": "1"}))
		// Hold the connection until the follower leaves.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	store := NewStore(newFakeAPI(seedProfiles()...))
	require.NoError(t, store.FetchProfiles(context.Background(), models.ProfileFilter{}))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- store.Follow(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")) }()

	require.Eventually(t, func() bool {
		got := ids(store.Snapshot().Profiles)
		return len(got) == 3 && got[0] == "9" && got[2] == "2"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFollow_DialError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	store := NewStore(newFakeAPI())
	err := store.Follow(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
