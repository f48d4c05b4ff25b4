// Package replay runs scripted actions through the call reducer.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

// ErrEmptyScript is returned for scripts without actions.
var ErrEmptyScript = errors.New("empty script")

// Action is one scripted step, using the wire action names.
type Action struct {
	Type string         `yaml:"type"`
	Data map[string]any `yaml:"data,omitempty"`
	// Expect optionally asserts the status after this step.
	Expect string `yaml:"expect,omitempty"`
}

// Script is a loaded sequence of events.
type Script struct {
	Events  []callstate.Event
	Expects []callstate.Status
}

// Load parses a YAML list of actions.
func Load(r io.Reader) (Script, error) {
	var actions []Action
	if err := yaml.NewDecoder(r).Decode(&actions); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, ErrEmptyScript
		}
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if len(actions) == 0 {
		return Script{}, ErrEmptyScript
	}

	script := Script{
		Events:  make([]callstate.Event, 0, len(actions)),
		Expects: make([]callstate.Status, 0, len(actions)),
	}
	for i, a := range actions {
		in := proto.Inbound{Type: a.Type}
		if len(a.Data) > 0 {
			raw, err := json.Marshal(a.Data)
			if err != nil {
				return Script{}, fmt.Errorf("step %d (%s): %w", i+1, a.Type, err)
			}
			in.Data = raw
		}
		ev, err := proto.DecodeAction(in)
		if err != nil {
			return Script{}, fmt.Errorf("step %d (%s): %w", i+1, a.Type, err)
		}
		script.Events = append(script.Events, ev)
		script.Expects = append(script.Expects, callstate.Status(a.Expect))
	}
	return script, nil
}

// Step records one reduction.
type Step struct {
	Event   string             `json:"event" yaml:"event"`
	Status  callstate.Status   `json:"status" yaml:"status"`
	Error   string             `json:"error,omitempty" yaml:"error,omitempty"`
	Ignored string             `json:"ignored,omitempty" yaml:"ignored,omitempty"`
	Effects []proto.EffectView `json:"effects,omitempty" yaml:"effects,omitempty"`
	// Mismatch is set when the step's expectation did not hold.
	Mismatch string `json:"mismatch,omitempty" yaml:"mismatch,omitempty"`
}

// Trace is the result of a replay.
type Trace struct {
	Steps []Step
	Final callstate.State
}

// Failed reports whether any expectation did not hold.
func (t Trace) Failed() bool {
	for _, s := range t.Steps {
		if s.Mismatch != "" {
			return true
		}
	}
	return false
}

// Run reduces the script from the initial state.
func Run(script Script) Trace {
	state := callstate.Initial()
	trace := Trace{Steps: make([]Step, 0, len(script.Events))}

	for i, ev := range script.Events {
		r := callstate.Reduce(state, ev)
		state = r.State

		step := Step{
			Event:   ev.Kind.String(),
			Status:  state.Status,
			Error:   state.Error,
			Ignored: r.Ignored,
		}
		if len(r.Effects) > 0 {
			step.Effects = proto.NewEffectViews(r.Effects)
		}
		if i < len(script.Expects) && script.Expects[i] != "" && script.Expects[i] != state.Status {
			step.Mismatch = fmt.Sprintf("expected %s, got %s", script.Expects[i], state.Status)
		}
		trace.Steps = append(trace.Steps, step)
	}
	trace.Final = state
	return trace
}
