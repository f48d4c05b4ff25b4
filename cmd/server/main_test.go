package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vovakirdan/wirechat-callstate/internal/auth"
	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayCommand(t *testing.T) {
	script := "- type: initiate_requested\n  expect: calling\n- type: initiate_failed\n  expect: failed\n"
	out, err := runCmd(t, script, "replay", "-")
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "initiate_failed") || !strings.Contains(out, "failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := runCmd(t, "- type: receive_end\n  expect: idle\n", "replay", "-"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestTokenCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("jwt_secret: s3cret\njwt_issuer: test\njwt_audience: test\nlog_level: error\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCmd(t, "", "--config", path, "token", "--client", "relay")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.ValidateToken(&auth.JWTConfig{Secret: []byte("s3cret"), Issuer: "test", Audience: "test"}, strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Client != "relay" {
		t.Fatalf("unexpected client %q", claims.Client)
	}
}

func TestParseActionLine(t *testing.T) {
	in, err := parseActionLine(`receive_offer {"caller_id":1,"call_type":"video"}`)
	if err != nil || in.Type != "receive_offer" {
		t.Fatalf("unexpected: %+v %v", in, err)
	}
	ev, err := proto.DecodeAction(in)
	if err != nil || ev.Offer == nil || ev.Offer.CallerID != "1" || ev.Offer.Kind != callstate.KindVideo {
		t.Fatalf("re-encoded action decodes to %+v %v", ev, err)
	}
	if in, err := parseActionLine("  clear_call  "); err != nil || in.Type != "clear_call" || in.Data != nil {
		t.Fatalf("unexpected: %+v %v", in, err)
	}
	if _, err := parseActionLine("receive_offer {"); err == nil {
		t.Fatal("expected invalid json error")
	}
	if _, err := parseActionLine(`receive_offer {"call_type":"audio"}`); !errors.Is(err, proto.ErrBadPayload) {
		t.Fatalf("expected bad payload, got %v", err)
	}
	if _, err := parseActionLine("recieve_offer"); err == nil {
		t.Fatal("expected unknown action error")
	}
}

func TestDescribeState(t *testing.T) {
	msg := "User is busy"
	got := describeState(proto.StateFrame{Seq: 3, Event: "receive_busy", State: proto.StateView{Status: "busy", Error: &msg}})
	if got != `#3 busy (after receive_busy) error="User is busy"` {
		t.Fatalf("unexpected %q", got)
	}
}
