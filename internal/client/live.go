package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/models"
)

const closeWait = time.Second

type remoteMessage struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// ApplyRemote folds one change-feed message into the mirror. Actions it does
// not know are ignored.
func (s *Store) ApplyRemote(raw []byte) error {
	var msg remoteMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("invalid change message: %w", err)
	}

	switch msg.Action {
	case models.ActionProfileCreated, models.ActionProfileUpdated:
		var p models.Profile
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.ID == "" {
			return fmt.Errorf("invalid %s payload", msg.Action)
		}
		s.commit(func() {
			s.putSorted(p)
			if s.current != nil && s.current.ID == p.ID {
				cp := p
				s.current = &cp
			}
		})
	case models.ActionProfileDeleted:
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Payload, &ref); err != nil || ref.ID == "" {
			return fmt.Errorf("invalid %s payload", msg.Action)
		}
		s.commit(func() { s.removeLocked(ref.ID) })
	}
	return nil
}

// Follow subscribes to the change feed at wsURL and applies messages until ctx
// ends or the connection drops. It returns ctx.Err() on cancellation.
func (s *Store) Follow(ctx context.Context, wsURL string) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to dial change feed: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("failed to dial change feed: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeWait))
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("change feed closed: %w", err)
		}
		if err := s.ApplyRemote(data); err != nil {
			log.Warn().Err(err).Msg("Ignoring change message")
		}
	}
}
