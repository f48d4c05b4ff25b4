package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/config"
)

type testOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	return cfg
}

// startTestServer runs a store and serves it. The returned cancel stops the store.
func startTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *callstate.Store, context.CancelFunc) {
	t.Helper()

	disabledLogger := zerolog.Nop()
	st := callstate.NewStore(&disabledLogger, nil, cfg.SubscriberBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	go st.Run(ctx)

	server := NewServer(st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)

	return ts, st, cancel
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

// mustOutbound reads frames until one with the given type and event arrives.
func mustOutbound(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, event string) testOutbound {
	t.Helper()

	for {
		var out testOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s/%s: %v", typ, event, err)
		}
		if out.Type == typ && out.Event == event {
			return out
		}
	}
}

func decodeData[T any](t *testing.T, out testOutbound) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(out.Data, &v); err != nil {
		t.Fatalf("unmarshal %s data: %v", out.Event, err)
	}
	return v
}
