// internal/clientsync/http.go
package clientsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/sirupsen/logrus"
)

// RealtimeSubprotocol is spoken on /realtime/ws.
const RealtimeSubprotocol = "realtime"

// HTTPRemote talks to the CSGames HTTP API, authenticating with the auth_token cookie.
type HTTPRemote struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Logger  *logrus.Logger
}

// NewHTTPRemote returns a remote for baseURL, e.g. "http://localhost:8080".
func NewHTTPRemote(baseURL, token string, logger *logrus.Logger) *HTTPRemote {
	return &HTTPRemote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
	}
}

// apiError is the error body returned by the server.
type apiError struct {
	Rejected bool                `json:"rejected"`
	Reason   models.RejectReason `json:"reason"`
	Error    string              `json:"error"`
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: r.Token})
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400:
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		if ae.Rejected {
			return models.Reject(ae.Reason)
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, ae.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// Session fetches (and on first call creates) the guest session, returning the profile.
// The token from the Set-Cookie header replaces r.Token.
func (r *HTTPRemote) Session(ctx context.Context) (*models.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/api/session", nil)
	if err != nil {
		return nil, err
	}
	if r.Token != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: r.Token})
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session: status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" {
			r.Token = c.Value
		}
	}
	var out struct {
		Profile models.Profile `json:"profile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

// CreateLobby opens a lobby for kind.
func (r *HTTPRemote) CreateLobby(ctx context.Context, kind models.GameKind, name string) (*models.Lobby, *models.GameState, error) {
	var out struct {
		Lobby models.Lobby     `json:"lobby"`
		Game  models.GameState `json:"game"`
	}
	err := r.do(ctx, http.MethodPost, "/api/lobbies", map[string]string{"gameId": string(kind), "name": name}, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out.Lobby, &out.Game, nil
}

// JoinLobby takes the second seat of a lobby.
func (r *HTTPRemote) JoinLobby(ctx context.Context, lobbyID uuid.UUID) (*models.GameState, error) {
	var gs models.GameState
	if err := r.do(ctx, http.MethodPost, "/api/lobbies/"+lobbyID.String()+"/join", nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// SetupAI seats the computer opponent.
func (r *HTTPRemote) SetupAI(ctx context.Context, lobbyID uuid.UUID) (*models.GameState, error) {
	var gs models.GameState
	if err := r.do(ctx, http.MethodPost, "/api/lobbies/"+lobbyID.String()+"/ai", nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// LobbyGame returns the lobby's current game.
func (r *HTTPRemote) LobbyGame(ctx context.Context, lobbyID uuid.UUID) (*models.GameState, error) {
	var gs models.GameState
	if err := r.do(ctx, http.MethodGet, "/api/lobbies/"+lobbyID.String()+"/game", nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// InviteResponse is returned by POST /api/invite.
type InviteResponse struct {
	Code     string `json:"code"`
	FullURL  string `json:"fullUrl"`
	LobbyURL string `json:"lobbyUrl"`
}

// Invite generates an invite code for a lobby.
func (r *HTTPRemote) Invite(ctx context.Context, lobbyID uuid.UUID) (*InviteResponse, error) {
	var out InviteResponse
	if err := r.do(ctx, http.MethodPost, "/api/invite", map[string]string{"lobbyId": lobbyID.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinCodeResponse is returned by POST /api/join-code.
type JoinCodeResponse struct {
	LobbyID   uuid.UUID `json:"lobbyId"`
	LobbyName string    `json:"lobbyName"`
	LobbyURL  string    `json:"lobbyUrl"`
}

// RedeemCode joins the lobby behind an invite code.
func (r *HTTPRemote) RedeemCode(ctx context.Context, code string) (*JoinCodeResponse, error) {
	var out JoinCodeResponse
	if err := r.do(ctx, http.MethodPost, "/api/join-code", map[string]string{"code": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *HTTPRemote) FetchGame(ctx context.Context, gameID uuid.UUID) (*models.GameState, error) {
	var gs models.GameState
	if err := r.do(ctx, http.MethodGet, "/api/games/"+gameID.String(), nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (r *HTTPRemote) SubmitMove(ctx context.Context, gameID uuid.UUID, payload map[string]interface{}) (*models.GameState, error) {
	var gs models.GameState
	if err := r.do(ctx, http.MethodPost, "/api/games/"+gameID.String()+"/moves", payload, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (r *HTTPRemote) FetchRematch(ctx context.Context, gameID uuid.UUID) (*models.PlayAgainRequest, error) {
	var req models.PlayAgainRequest
	if err := r.do(ctx, http.MethodGet, "/api/games/"+gameID.String()+"/rematch", nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *HTTPRemote) RequestRematch(ctx context.Context, gameID, lobbyID uuid.UUID) (*models.PlayAgainRequest, error) {
	var req models.PlayAgainRequest
	body := map[string]string{"lobbyId": lobbyID.String()}
	if err := r.do(ctx, http.MethodPost, "/api/games/"+gameID.String()+"/rematch", body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Subscribe dials /realtime/ws and streams events until the feed is closed or the
// connection drops.
func (r *HTTPRemote) Subscribe(ctx context.Context, table string, f realtime.Filter) (Feed, error) {
	u, err := url.Parse(r.BaseURL + "/realtime/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("table", table)
	if f.Column != "" {
		q.Set("column", f.Column)
		q.Set("value", f.Value)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if r.Token != "" {
		header.Set("Cookie", "auth_token="+r.Token)
	}
	c, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: []string{RealtimeSubprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	fctx, cancel := context.WithCancel(ctx)
	feed := &wsFeed{conn: c, cancel: cancel, ch: make(chan realtime.Event, 16)}
	go feed.readLoop(fctx, r.Logger)
	return feed, nil
}

type wsFeed struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	ch     chan realtime.Event
}

func (f *wsFeed) Events() <-chan realtime.Event { return f.ch }

// Close runs the close handshake while readLoop is still reading, then stops it.
func (f *wsFeed) Close() error {
	defer f.cancel()
	return f.conn.Close(websocket.StatusNormalClosure, "unsubscribe")
}

func (f *wsFeed) readLoop(ctx context.Context, logger *logrus.Logger) {
	defer close(f.ch)
	for {
		var ev realtime.Event
		if err := wsjson.Read(ctx, f.conn, &ev); err != nil {
			status := websocket.CloseStatus(err)
			if ctx.Err() == nil && status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, io.EOF) && logger != nil {
				logger.Warnf("realtime feed read failed: %v", err)
			}
			return
		}
		select {
		case f.ch <- ev:
		case <-ctx.Done():
			return
		}
	}
}
