// Package obs switches OBS Studio scenes over the obs-websocket v5 protocol.
package obs

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/bryanchriswhite/DonaldSwap/internal/config"
	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// obs-websocket opcodes.
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opRequest         = 6
	opRequestResponse = 7

	rpcVersion = 1
)

type message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type hello struct {
	OBSWebSocketVersion string `json:"obsWebSocketVersion"`
	RPCVersion          int    `json:"rpcVersion"`
	Authentication      *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication,omitempty"`
}

type identify struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

type request struct {
	RequestType string      `json:"requestType"`
	RequestID   string      `json:"requestId"`
	RequestData interface{} `json:"requestData,omitempty"`
}

type requestResponse struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
}

// Client opens a short-lived obs-websocket session per scene switch. Connection settings
// are read on every call so edits to the config take effect without a restart.
type Client struct {
	settings func() config.OBSConfig
	dialer   *websocket.Dialer
}

// NewClient creates a client reading its endpoint from settings.
func NewClient(settings func() config.OBSConfig) *Client {
	return &Client{
		settings: settings,
		dialer:   websocket.DefaultDialer,
	}
}

// SwitchTo sets the current program scene. The whole exchange is bounded by the
// configured timeout and by ctx.
func (c *Client) SwitchTo(ctx context.Context, scene string) error {
	log := logger.WithComponent("obs")
	cfg := c.settings()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}
	log.Debug().Str("url", u.String()).Str("scene", scene).Msg("Connecting to OBS")

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to OBS at %s: %w", u.Host, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}
	// Unblock reads if ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := c.handshake(conn, cfg.Password); err != nil {
		return err
	}

	resp, err := c.call(conn, "SetCurrentProgramScene", map[string]string{"sceneName": scene})
	if err != nil {
		return err
	}
	if !resp.RequestStatus.Result {
		return fmt.Errorf("OBS rejected scene switch to %q (code %d): %s",
			scene, resp.RequestStatus.Code, resp.RequestStatus.Comment)
	}

	log.Info().Str("scene", scene).Msg("OBS scene changed")
	return nil
}

func (c *Client) handshake(conn *websocket.Conn, password string) error {
	var h hello
	if err := expect(conn, opHello, &h); err != nil {
		return fmt.Errorf("OBS hello: %w", err)
	}

	id := identify{RPCVersion: rpcVersion}
	if h.Authentication != nil {
		if password == "" {
			return fmt.Errorf("OBS requires a password but none is configured")
		}
		id.Authentication = authResponse(password, h.Authentication.Salt, h.Authentication.Challenge)
	}
	if err := send(conn, opIdentify, id); err != nil {
		return fmt.Errorf("OBS identify: %w", err)
	}

	if err := expect(conn, opIdentified, nil); err != nil {
		return fmt.Errorf("OBS identify rejected: %w", err)
	}
	return nil
}

func (c *Client) call(conn *websocket.Conn, requestType string, data interface{}) (*requestResponse, error) {
	req := request{
		RequestType: requestType,
		RequestID:   uuid.NewString(),
		RequestData: data,
	}
	if err := send(conn, opRequest, req); err != nil {
		return nil, fmt.Errorf("OBS %s: %w", requestType, err)
	}

	for {
		var resp requestResponse
		if err := expect(conn, opRequestResponse, &resp); err != nil {
			return nil, fmt.Errorf("OBS %s: %w", requestType, err)
		}
		if resp.RequestID == req.RequestID {
			return &resp, nil
		}
	}
}

// authResponse implements the obs-websocket challenge:
// base64(sha256(base64(sha256(password + salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

func send(conn *websocket.Conn, op int, d interface{}) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return conn.WriteJSON(message{Op: op, D: raw})
}

// expect reads until a message with opcode op arrives, skipping events and other
// unsolicited traffic, and decodes its payload into out (if non-nil).
func expect(conn *websocket.Conn, op int, out interface{}) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Op != op {
			continue
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(msg.D, out)
	}
}
