package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/wirechat-callstate/internal/proto"
	"github.com/vovakirdan/wirechat-callstate/internal/replay"
)

func newReplayCmd(_ *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "replay <script.yaml|->",
		Short: "Run a YAML action script through the reducer and print each step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			script, err := replay.Load(in)
			if err != nil {
				return err
			}
			trace := replay.Run(script)

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				if err := enc.Encode(trace.Steps); err != nil {
					return err
				}
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(struct {
					Steps []replay.Step     `json:"steps"`
					Final proto.StateView `json:"final"`
				}{trace.Steps, proto.NewStateView(trace.Final)}); err != nil {
					return err
				}
			default:
				for i, s := range trace.Steps {
					fmt.Fprintf(out, "%2d %-26s -> %-9s", i+1, s.Event, s.Status)
					if s.Ignored != "" {
						fmt.Fprintf(out, " ignored: %s", s.Ignored)
					}
					for _, e := range s.Effects {
						fmt.Fprintf(out, " [%s %s]", e.Kind, firstNonEmpty(e.PeerID, e.LocalStream, e.RemoteStream))
					}
					if s.Mismatch != "" {
						fmt.Fprintf(out, " MISMATCH: %s", s.Mismatch)
					}
					fmt.Fprintln(out)
				}
			}

			if trace.Failed() {
				return fmt.Errorf("replay: expectations failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, yaml or json")
	return cmd
}
