package replay

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

func loadFile(t *testing.T, path string) Script {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	script, err := Load(f)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	return script
}

func TestAliceScenario(t *testing.T) {
	trace := Run(loadFile(t, "testdata/alice.yaml"))
	if trace.Failed() {
		t.Fatalf("expectations failed: %+v", trace.Steps)
	}
	if trace.Final != callstate.Initial() {
		t.Fatalf("expected initial state, got %+v", trace.Final)
	}

	ended := trace.Steps[7]
	if ended.Error != callstate.MsgPeerEnded || len(ended.Effects) != 1 {
		t.Fatalf("unexpected end step: %+v", ended)
	}
	if ended.Effects[0].LocalStream != "mic-1" || ended.Effects[0].RemoteStream != "alice-stream" {
		t.Fatalf("release effect lost streams: %+v", ended.Effects[0])
	}
}

func TestBusyScenario(t *testing.T) {
	trace := Run(loadFile(t, "testdata/busy.yaml"))
	if trace.Failed() {
		t.Fatalf("expectations failed: %+v", trace.Steps)
	}

	offer := trace.Steps[2]
	if offer.Ignored != callstate.ReasonInCall || len(offer.Effects) != 1 || offer.Effects[0].Signal == nil {
		t.Fatalf("expected busy reply: %+v", offer)
	}
	if offer.Effects[0].Signal.Type != proto.SignalBusy || offer.Effects[0].Signal.CalleeID != "3" {
		t.Fatalf("unexpected signal: %+v", offer.Effects[0].Signal)
	}
	if trace.Final.Error != callstate.MsgBusy || trace.Final.Session != nil {
		t.Fatalf("unexpected final state: %+v", trace.Final)
	}
}

func TestMismatchIsReported(t *testing.T) {
	script, err := Load(strings.NewReader("- type: receive_end\n  expect: idle\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	trace := Run(script)
	if !trace.Failed() || trace.Steps[0].Mismatch == "" {
		t.Fatalf("expected mismatch: %+v", trace.Steps)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(strings.NewReader("")); !errors.Is(err, ErrEmptyScript) {
		t.Fatalf("expected ErrEmptyScript, got %v", err)
	}
	if _, err := Load(strings.NewReader("[]")); !errors.Is(err, ErrEmptyScript) {
		t.Fatalf("expected ErrEmptyScript, got %v", err)
	}
	if _, err := Load(strings.NewReader("- type: update_connection_state\n  data: {state: sideways}\n")); !errors.Is(err, proto.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if _, err := Load(strings.NewReader("type: not-a-list")); err == nil {
		t.Fatal("expected parse error")
	}
}
