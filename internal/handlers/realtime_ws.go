// internal/handlers/realtime_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/auth"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/middleware"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/sirupsen/logrus"
)

// RealtimeSubprotocol must be offered by clients of /realtime/ws.
const RealtimeSubprotocol = "realtime"

const writeTimeout = 5 * time.Second

// filterable lists the columns each table can be filtered on.
var filterable = map[string]map[string]bool{
	realtime.TableGameStates:        {"id": true, "lobby_id": true},
	realtime.TableLobbies:           {"id": true, "status": true},
	realtime.TablePlayAgainRequests: {"original_game_id": true, "lobby_id": true},
	realtime.TableChatMessages:      {"lobby_id": true},
}

// RealtimeWSHandler streams change events for ?table=&column=&value= to an authenticated
// client. Game snapshots are filtered through game.ViewFor for the subscriber, and a
// subscription to one lobby counts the user as present in it.
func (s *Server) RealtimeWSHandler(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr
	q := r.URL.Query()
	table, column, value := q.Get("table"), q.Get("column"), q.Get("value")

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{RealtimeSubprotocol},
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != RealtimeSubprotocol {
		c.Close(BadSubprotocolError, "client must speak the realtime subprotocol")
		return
	}

	sess, err := auth.AuthenticateJWT(tokenFromRequest(r))
	if err != nil {
		c.Close(InvalidAuthTokenError, "invalid auth token")
		return
	}
	cols, ok := filterable[table]
	if !ok {
		c.Close(InvalidTableError, "unknown table")
		return
	}
	if column != "" && !cols[column] {
		c.Close(InvalidFilterError, "column is not filterable")
		return
	}

	ctx := c.CloseRead(r.Context())
	if table == realtime.TableLobbies && column == "id" {
		lobbyID, err := uuid.Parse(value)
		if err != nil {
			c.Close(InvalidLobbyIDError, "invalid lobby id")
			return
		}
		if _, err := s.Store.GetLobby(ctx, lobbyID); err != nil {
			c.Close(InvalidLobbyIDError, "lobby does not exist")
			return
		}
		leave := s.Presence.Enter(lobbyID, sess.UserID)
		defer leave()
	}

	sub := s.Hub.Subscribe(table, realtime.Filter{Column: column, Value: value})
	defer sub.Unsubscribe()

	conn := middleware.WSConn{Remote: remoteAddr, User: sess.UserID.String(), Table: table}
	if column != "" {
		conn.Filter = column + "=" + value
	}
	middleware.LogWebSocketConnect(s.Logger, conn)
	sent, err := s.pump(ctx, c, sub, sess.UserID)
	middleware.LogWebSocketDisconnect(s.Logger, conn, sent, err)

	if err == nil || ctx.Err() != nil {
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// pump writes events until the client goes away or the subscription ends, and reports
// how many were written.
func (s *Server) pump(ctx context.Context, c *websocket.Conn, sub *realtime.Subscription, viewer uuid.UUID) (int, error) {
	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent, nil
		case ev, ok := <-sub.Events():
			if !ok {
				return sent, nil
			}
			if ev.Table == realtime.TableGameStates {
				ev = s.viewEvent(ev, viewer)
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c, ev)
			cancel()
			if err != nil {
				return sent, err
			}
			sent++
		}
	}
}

// viewEvent re-encodes both game row images as the viewer may see them.
func (s *Server) viewEvent(ev realtime.Event, viewer uuid.UUID) realtime.Event {
	ev.New = s.viewRow(ev.New, viewer)
	ev.Old = s.viewRow(ev.Old, viewer)
	return ev
}

func (s *Server) viewRow(raw json.RawMessage, viewer uuid.UUID) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var gs models.GameState
	if err := json.Unmarshal(raw, &gs); err != nil {
		s.Logger.WithFields(logrus.Fields{"viewer": viewer}).Warnf("realtime: undecodable game row: %v", err)
		return nil
	}
	out, err := json.Marshal(game.ViewFor(&gs, viewer))
	if err != nil {
		return nil
	}
	return out
}

// originPatterns is what websocket.Accept checks the Origin header against.
func (s *Server) originPatterns() []string {
	if !s.Production && len(s.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(s.AllowedOrigins))
	for _, o := range s.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		} else {
			out = append(out, o)
		}
	}
	return out
}
