package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

func newWatchCmd(_ *rootFlags) *cobra.Command {
	var (
		addr  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running store; stdin lines \"<action> [json]\" are dispatched",
		RunE: func(cmd *cobra.Command, _ []string) error {
			baseCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(baseCtx)
			defer cancel()

			target := addr
			if token != "" {
				target += "?token=" + url.QueryEscape(token)
			}
			conn, _, err := websocket.Dial(ctx, target, nil)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close(websocket.StatusNormalClosure, "bye")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connected to %s. Type actions like: receive_offer {\"caller_id\":1}. Ctrl+C to exit.\n", addr)

			go func() {
				defer cancel()
				watchReadLoop(ctx, conn, out)
			}()

			watchWriteLoop(ctx, conn, cmd.InOrStdin(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:8080/ws", "WebSocket address")
	cmd.Flags().StringVar(&token, "token", "", "bearer token when auth is enabled")
	return cmd
}

func watchReadLoop(ctx context.Context, conn *websocket.Conn, out io.Writer) {
	for {
		var frame struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			fmt.Fprintf(out, "read error: %v\n", err)
			return
		}

		if frame.Type == proto.OutboundTypeError && frame.Error != nil {
			fmt.Fprintf(out, "error %s: %s\n", frame.Error.Code, frame.Error.Msg)
			continue
		}

		switch frame.Event {
		case proto.EventState:
			var sf proto.StateFrame
			if err := json.Unmarshal(frame.Data, &sf); err != nil {
				fmt.Fprintf(out, "unmarshal state: %v\n", err)
				continue
			}
			fmt.Fprintln(out, describeState(sf))
		case proto.EventEffect:
			var ef proto.EffectView
			if err := json.Unmarshal(frame.Data, &ef); err != nil {
				fmt.Fprintf(out, "unmarshal effect: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "    effect %s peer=%s local=%s remote=%s\n", ef.Kind, ef.PeerID, ef.LocalStream, ef.RemoteStream)
		case proto.EventIgnored:
			var ig proto.IgnoredFrame
			if err := json.Unmarshal(frame.Data, &ig); err != nil {
				fmt.Fprintf(out, "unmarshal ignored: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "    %s ignored: %s\n", ig.Event, ig.Reason)
		}
	}
}

func describeState(sf proto.StateFrame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", sf.Seq, sf.State.Status)
	if sf.Event != "" {
		fmt.Fprintf(&b, " (after %s)", sf.Event)
	}
	if s := sf.State.Session; s != nil {
		fmt.Fprintf(&b, " with %s[%s] %s conn=%s", s.PeerUsername, s.PeerID, s.CallType, s.ConnectionState)
	}
	if in := sf.State.IncomingCall; in != nil {
		fmt.Fprintf(&b, " from %s[%s] %s", in.CallerUsername, in.CallerID, in.CallType)
	}
	if sf.State.Error != nil {
		fmt.Fprintf(&b, " error=%q", *sf.State.Error)
	}
	return b.String()
}

func watchWriteLoop(ctx context.Context, conn *websocket.Conn, in io.Reader, out io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			inbound, err := parseActionLine(line)
			if err != nil {
				fmt.Fprintf(out, "%v\n", err)
				continue
			}
			if inbound.Type == "" {
				continue
			}
			if err := wsjson.Write(ctx, conn, inbound); err != nil {
				fmt.Fprintf(out, "send: %v\n", err)
				return
			}
		}
	}
}

// parseActionLine reads "<action> [json data]" and re-encodes it in wire
// form, so typos and bad payloads are reported before anything is sent.
func parseActionLine(line string) (proto.Inbound, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return proto.Inbound{}, nil
	}
	name, data, _ := strings.Cut(line, " ")
	in := proto.Inbound{Type: name}
	if data = strings.TrimSpace(data); data != "" {
		if !json.Valid([]byte(data)) {
			return proto.Inbound{}, fmt.Errorf("invalid json data for %s", name)
		}
		in.Data = json.RawMessage(data)
	}

	ev, err := proto.DecodeAction(in)
	if err != nil {
		return proto.Inbound{}, err
	}
	if ev.Kind == callstate.EventUnknown {
		return proto.Inbound{}, fmt.Errorf("unknown action %q", name)
	}
	return proto.EncodeAction(ev)
}
