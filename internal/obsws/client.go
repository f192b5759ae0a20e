package obsws

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/wowr/internal/recorder"
)

// Ensure Client implements recorder.Capability at compile time.
var _ recorder.Capability = (*Client)(nil)

// ErrNotConnected is returned when the connection drops mid-request.
var ErrNotConnected = errors.New("obs websocket not connected")

const (
	defaultAddress = "127.0.0.1:4455"
	defaultTimeout = 5 * time.Second
	rpcVersion     = 1
)

// Op codes from the obs-websocket 5.x protocol.
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opEvent           = 5
	opRequest         = 6
	opRequestResponse = 7
)

// RequestError reports a request OBS received but refused.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("obs %s failed with code %d: %s", e.RequestType, e.Code, e.Comment)
	}
	return fmt.Sprintf("obs %s failed with code %d", e.RequestType, e.Code)
}

// Client talks to OBS Studio over obs-websocket. A connection is opened on
// first use and re-opened after any transport failure.
type Client struct {
	url      *url.URL
	password string
	timeout  time.Duration
	dialer   *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

// NewClient builds a Client for the host:port (or ws:// URL) in address.
func NewClient(address, password string, timeout time.Duration) (*Client, error) {
	u, err := parseURL(address)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:      u,
		password: password,
		timeout:  timeout,
		dialer:   &websocket.Dialer{HandshakeTimeout: timeout},
	}, nil
}

// Close drops the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked()
}

// Status returns whether OBS is recording and whether the recording is paused.
func (c *Client) Status(ctx context.Context) (recorder.Status, error) {
	var payload struct {
		Active bool `json:"outputActive"`
		Paused bool `json:"outputPaused"`
	}
	if err := c.do(ctx, "GetRecordStatus", nil, &payload); err != nil {
		return recorder.Status{}, err
	}
	return recorder.Status{Active: payload.Active, Paused: payload.Paused}, nil
}

func (c *Client) Start(ctx context.Context) error {
	return c.do(ctx, "StartRecord", nil, nil)
}

func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, "StopRecord", nil, nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, "PauseRecord", nil, nil)
}

func (c *Client) Resume(ctx context.Context) error {
	return c.do(ctx, "ResumeRecord", nil, nil)
}

func (c *Client) Split(ctx context.Context) error {
	return c.do(ctx, "SplitRecordFile", nil, nil)
}

// CreateChapter adds a chapter marker; OBS names it when name is empty.
func (c *Client) CreateChapter(ctx context.Context, name string) error {
	var data any
	if name != "" {
		data = map[string]string{"chapterName": name}
	}
	return c.do(ctx, "CreateRecordChapter", data, nil)
}

type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type requestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment"`
}

type response struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus requestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData"`
}

func (c *Client) do(ctx context.Context, requestType string, data any, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return err
		}
	}

	resp, err := c.roundTripLocked(ctx, requestType, data)
	if err != nil {
		_ = c.dropLocked()
		return err
	}
	if !resp.RequestStatus.Result {
		return &RequestError{
			RequestType: requestType,
			Code:        resp.RequestStatus.Code,
			Comment:     resp.RequestStatus.Comment,
		}
	}
	if dest == nil || len(resp.ResponseData) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.ResponseData, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", requestType, err)
	}
	return nil
}

func (c *Client) roundTripLocked(ctx context.Context, requestType string, data any) (response, error) {
	c.nextID++
	id := strconv.FormatUint(c.nextID, 10)

	d := map[string]any{"requestType": requestType, "requestId": id}
	if data != nil {
		d["requestData"] = data
	}
	if err := c.writeLocked(ctx, opRequest, d); err != nil {
		return response{}, fmt.Errorf("send %s: %w", requestType, err)
	}

	for {
		msg, err := c.readLocked(ctx)
		if err != nil {
			return response{}, fmt.Errorf("await %s: %w", requestType, err)
		}
		if msg.Op != opRequestResponse {
			// Events and anything else we did not subscribe to.
			continue
		}
		var resp response
		if err := json.Unmarshal(msg.D, &resp); err != nil {
			return response{}, fmt.Errorf("decode response: %w", err)
		}
		if resp.RequestID == id {
			return resp, nil
		}
	}
}

func (c *Client) connectLocked(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url.String(), nil)
	if err != nil {
		return fmt.Errorf("dial obs websocket %s: %w", c.url.Host, err)
	}
	c.conn = conn

	if err := c.identifyLocked(ctx); err != nil {
		_ = c.dropLocked()
		return err
	}
	return nil
}

func (c *Client) identifyLocked(ctx context.Context) error {
	msg, err := c.readLocked(ctx)
	if err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if msg.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", msg.Op)
	}
	var hello struct {
		RPCVersion     int `json:"rpcVersion"`
		Authentication *struct {
			Challenge string `json:"challenge"`
			Salt      string `json:"salt"`
		} `json:"authentication"`
	}
	if err := json.Unmarshal(msg.D, &hello); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	identify := map[string]any{
		"rpcVersion":         rpcVersion,
		"eventSubscriptions": 0,
	}
	if hello.Authentication != nil {
		if c.password == "" {
			return fmt.Errorf("obs websocket requires a password")
		}
		identify["authentication"] = authResponse(c.password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}
	if err := c.writeLocked(ctx, opIdentify, identify); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	msg, err = c.readLocked(ctx)
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == 4009 {
			return fmt.Errorf("obs websocket authentication failed")
		}
		return fmt.Errorf("read identified: %w", err)
	}
	if msg.Op != opIdentified {
		return fmt.Errorf("expected identified, got op %d", msg.Op)
	}
	return nil
}

func (c *Client) writeLocked(ctx context.Context, op int, d any) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	conn := c.conn
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetWriteDeadline(time.Now()) })
	defer stop()
	if err := conn.WriteJSON(map[string]any{"op": op, "d": d}); err != nil {
		return contextErr(ctx, err)
	}
	return nil
}

func (c *Client) readLocked(ctx context.Context) (envelope, error) {
	if c.conn == nil {
		return envelope{}, ErrNotConnected
	}
	conn := c.conn
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	// Cancellation unblocks a pending read; the connection is dropped by the caller.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()
	var msg envelope
	if err := conn.ReadJSON(&msg); err != nil {
		return envelope{}, contextErr(ctx, err)
	}
	return msg, nil
}

// contextErr prefers the context's error when it caused err.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (c *Client) dropLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// authResponse implements the obs-websocket challenge:
// base64(sha256(base64(sha256(password + salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

func parseURL(address string) (*url.URL, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		trimmed = defaultAddress
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "ws://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse obs address %q: %w", address, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("parse obs address %q: unsupported scheme %q", address, u.Scheme)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
