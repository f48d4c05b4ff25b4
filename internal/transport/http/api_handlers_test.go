package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestDispatchAndState(t *testing.T) {
	ts, _, _ := startTestServer(t, testConfig())

	resp := postJSON(t, ts, "/api/dispatch", proto.Inbound{Type: "initiate_requested"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	dr := decodeBody[DispatchResponse](t, resp)
	if dr.State.Status != "calling" || !dr.State.IsInitiating || dr.Ignored != "" {
		t.Fatalf("unexpected response: %+v", dr)
	}

	peer, _ := json.Marshal(proto.PeerData{PeerID: "4", PeerUsername: "Dan", CallType: "VIDEO", LocalStream: "cam"})
	resp = postJSON(t, ts, "/api/dispatch", proto.Inbound{Type: "initiate_succeeded", Data: peer})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	stateResp, err := ts.Client().Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer stateResp.Body.Close()
	frame := decodeBody[proto.StateFrame](t, stateResp)
	if frame.Seq != 2 || frame.State.Session == nil || frame.State.Session.CallType != "video" || frame.State.Session.ConnectionState != "new" {
		t.Fatalf("unexpected state: %+v", frame)
	}
}

func TestDispatchReportsEffectsAndGuards(t *testing.T) {
	ts, _, _ := startTestServer(t, testConfig())

	resp := postJSON(t, ts, "/api/dispatch", proto.Inbound{Type: "accept_requested"})
	dr := decodeBody[DispatchResponse](t, resp)
	if dr.Ignored == "" || dr.State.Status != "idle" {
		t.Fatalf("accept without offer should be ignored: %+v", dr)
	}

	resp = postJSON(t, ts, "/api/signal", proto.Signal{Type: proto.SignalOffer, CallerID: "8", CallType: "AUDIO"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	resp = postJSON(t, ts, "/api/signal", proto.Signal{Type: proto.SignalOffer, CallerID: "9"})
	dr = decodeBody[DispatchResponse](t, resp)
	if len(dr.Effects) != 1 || dr.Effects[0].Kind != "send_busy" {
		t.Fatalf("expected busy effect: %+v", dr)
	}
}

func TestSignalEndpointErrors(t *testing.T) {
	ts, _, _ := startTestServer(t, testConfig())

	if resp := postJSON(t, ts, "/api/signal", proto.Signal{Type: proto.SignalIceCandidate}); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("ice candidate: unexpected status %d", resp.StatusCode)
	}
	if resp := postJSON(t, ts, "/api/signal", proto.Signal{Type: "CALL_TRANSFER"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown signal: unexpected status %d", resp.StatusCode)
	}
	if resp := postJSON(t, ts, "/api/dispatch", proto.Inbound{Type: "receive_offer"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("offer without caller: unexpected status %d", resp.StatusCode)
	}

	resp, err := ts.Client().Post(ts.URL+"/api/dispatch", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("broken json: unexpected status %d", resp.StatusCode)
	}
}

func TestStoreClosedIsUnavailable(t *testing.T) {
	ts, st, cancel := startTestServer(t, testConfig())
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := st.Current(context.Background()); errors.Is(err, callstate.ErrStoreClosed) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("store did not stop")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := ts.Client().Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts, _, _ := startTestServer(t, testConfig())

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("unexpected request id %q", got)
	}

	resp2, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = []string{"http://ui.local"}
	ts, _, _ := startTestServer(t, cfg)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/dispatch", nil)
	req.Header.Set("Origin", "http://ui.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Fatalf("unexpected allow origin %q (status %d)", got, resp.StatusCode)
	}
}
