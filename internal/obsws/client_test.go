package obsws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/wowr/internal/recorder"
)

// fakeOBS is a minimal obs-websocket server keeping recording state in memory.
type fakeOBS struct {
	t        *testing.T
	password string

	mu       sync.Mutex
	status   recorder.Status
	requests []string
	chapters []string
	fail     map[string]requestStatus
	dropNext bool
	stall    map[string]bool
}

func (f *fakeOBS) handler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	hello := map[string]any{"obsWebSocketVersion": "5.5.0", "rpcVersion": 1}
	if f.password != "" {
		hello["authentication"] = map[string]string{"challenge": "chal", "salt": "salt"}
	}
	if err := conn.WriteJSON(map[string]any{"op": opHello, "d": hello}); err != nil {
		return
	}

	var identify envelope
	if err := conn.ReadJSON(&identify); err != nil || identify.Op != opIdentify {
		return
	}
	var ident struct {
		Authentication string `json:"authentication"`
	}
	_ = json.Unmarshal(identify.D, &ident)
	if f.password != "" && ident.Authentication != authResponse(f.password, "salt", "chal") {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4009, "Authentication failed."))
		return
	}
	if err := conn.WriteJSON(map[string]any{"op": opIdentified, "d": map[string]int{"negotiatedRpcVersion": 1}}); err != nil {
		return
	}

	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		var req struct {
			RequestType string            `json:"requestType"`
			RequestID   string            `json:"requestId"`
			RequestData map[string]string `json:"requestData"`
		}
		_ = json.Unmarshal(msg.D, &req)

		f.mu.Lock()
		if f.dropNext {
			f.dropNext = false
			f.mu.Unlock()
			return
		}
		f.requests = append(f.requests, req.RequestType)
		if f.stall[req.RequestType] {
			f.mu.Unlock()
			continue
		}
		status := requestStatus{Result: true, Code: 100}
		var data any
		if failed, ok := f.fail[req.RequestType]; ok {
			status = failed
		} else {
			switch req.RequestType {
			case "GetRecordStatus":
				data = map[string]any{"outputActive": f.status.Active, "outputPaused": f.status.Paused, "outputTimecode": "00:00:00.000"}
			case "StartRecord":
				f.status = recorder.Status{Active: true}
			case "StopRecord":
				f.status = recorder.Status{}
				data = map[string]string{"outputPath": "/videos/raid.mkv"}
			case "PauseRecord":
				f.status.Paused = true
			case "ResumeRecord":
				f.status.Paused = false
			case "CreateRecordChapter":
				f.chapters = append(f.chapters, req.RequestData["chapterName"])
			}
		}
		f.mu.Unlock()

		// An unrelated event first, which the client must skip.
		_ = conn.WriteJSON(map[string]any{"op": opEvent, "d": map[string]any{"eventType": "RecordStateChanged"}})
		_ = conn.WriteJSON(map[string]any{"op": opRequestResponse, "d": map[string]any{
			"requestType":   req.RequestType,
			"requestId":     req.RequestID,
			"requestStatus": status,
			"responseData":  data,
		}})
	}
}

func newFakeOBS(t *testing.T, password string) (*fakeOBS, *httptest.Server) {
	t.Helper()
	f := &fakeOBS{t: t, password: password, fail: map[string]requestStatus{}, stall: map[string]bool{}}
	server := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(server.Close)
	return f, server
}

func newTestClient(t *testing.T, server *httptest.Server, password string) *Client {
	t.Helper()
	c, err := NewClient(server.URL, password, 2*time.Second)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestParseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseURL("")
	if err != nil {
		t.Fatalf("parseURL returned error: %v", err)
	}
	if u.String() != "ws://"+defaultAddress {
		t.Fatalf("url = %q, want ws://%s", u.String(), defaultAddress)
	}

	u, err = parseURL("http://obs.lan:4455/?x=1#frag")
	if err != nil {
		t.Fatalf("parseURL returned error: %v", err)
	}
	if u.Scheme != "ws" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseURL("ftp://obs.lan"); err == nil {
		t.Fatal("parseURL accepted ftp scheme")
	}
}

func TestAuthResponse(t *testing.T) {
	// Worked example from the obs-websocket protocol documentation.
	got := authResponse("supersecretpassword", "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI=", "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY=")
	want := "1Ct943GAT+6YQUUX47Ia/ncufilbe6+oD6lY+5kaCu4="
	if got != want {
		t.Fatalf("authResponse = %q, want %q", got, want)
	}
}

func TestClient_RecordingLifecycle(t *testing.T) {
	t.Parallel()

	fake, server := newFakeOBS(t, "hunter2")
	c := newTestClient(t, server, "hunter2")
	ctx := context.Background()

	status, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.Active {
		t.Fatalf("Status = %v, want idle", status)
	}

	for _, step := range []struct {
		name string
		call func(context.Context) error
	}{
		{"Start", c.Start},
		{"Pause", c.Pause},
		{"Resume", c.Resume},
		{"Split", c.Split},
		{"Chapter", func(ctx context.Context) error { return c.CreateChapter(ctx, "Ulgrax the Devourer") }},
	} {
		if err := step.call(ctx); err != nil {
			t.Fatalf("%s returned error: %v", step.name, err)
		}
	}

	status, err = c.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if !status.Active || status.Paused {
		t.Fatalf("Status = %v, want recording", status)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	want := []string{"GetRecordStatus", "StartRecord", "PauseRecord", "ResumeRecord", "SplitRecordFile", "CreateRecordChapter", "GetRecordStatus", "StopRecord"}
	if strings.Join(fake.requests, ",") != strings.Join(want, ",") {
		t.Fatalf("requests = %v, want %v", fake.requests, want)
	}
	if len(fake.chapters) != 1 || fake.chapters[0] != "Ulgrax the Devourer" {
		t.Fatalf("chapters = %v, want encounter name", fake.chapters)
	}
}

func TestClient_RequestError(t *testing.T) {
	t.Parallel()

	fake, server := newFakeOBS(t, "")
	fake.fail["StopRecord"] = requestStatus{Result: false, Code: 501, Comment: "Output is not running."}
	c := newTestClient(t, server, "")

	err := c.Stop(context.Background())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Stop error = %v, want *RequestError", err)
	}
	if reqErr.Code != 501 || reqErr.RequestType != "StopRecord" {
		t.Fatalf("RequestError = %+v", reqErr)
	}

	// A refused request keeps the connection usable.
	if _, err := c.Status(context.Background()); err != nil {
		t.Fatalf("Status after request error: %v", err)
	}
}

func TestClient_AuthenticationFailure(t *testing.T) {
	t.Parallel()

	_, server := newFakeOBS(t, "hunter2")
	c := newTestClient(t, server, "wrong")

	_, err := c.Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "authentication failed") {
		t.Fatalf("Status error = %v, want authentication failure", err)
	}
}

func TestClient_PasswordRequired(t *testing.T) {
	t.Parallel()

	_, server := newFakeOBS(t, "hunter2")
	c := newTestClient(t, server, "")

	_, err := c.Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "requires a password") {
		t.Fatalf("Status error = %v, want password error", err)
	}
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	t.Parallel()

	fake, server := newFakeOBS(t, "")
	c := newTestClient(t, server, "")
	ctx := context.Background()

	if _, err := c.Status(ctx); err != nil {
		t.Fatalf("Status returned error: %v", err)
	}

	fake.mu.Lock()
	fake.dropNext = true
	fake.mu.Unlock()

	if err := c.Start(ctx); err == nil {
		t.Fatal("Start on a dropped connection returned nil error")
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start after reconnect returned error: %v", err)
	}
	status, err := c.Status(ctx)
	if err != nil || !status.Active {
		t.Fatalf("Status = %v, %v; want active", status, err)
	}
}

func TestClient_CancelUnblocksPendingRequest(t *testing.T) {
	t.Parallel()

	fake, server := newFakeOBS(t, "")
	c, err := NewClient(server.URL, "", time.Minute)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	fake.mu.Lock()
	fake.stall["StopRecord"] = true
	fake.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	started := time.Now()
	err = c.Stop(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Stop error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("Stop returned after %s, want prompt return on cancel", elapsed)
	}

	if _, err := c.Status(context.Background()); err != nil {
		t.Fatalf("Status after cancel returned error: %v", err)
	}
}

func TestClient_DialFailure(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", "", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := c.Start(context.Background()); err == nil || !strings.Contains(err.Error(), "dial obs websocket") {
		t.Fatalf("Start error = %v, want dial error", err)
	}
}
