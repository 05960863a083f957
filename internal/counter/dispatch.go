package counter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Action is the closed, payload-free set of operations the presentation
// layer may request.
type Action int

const (
	ActionGet Action = iota
	ActionIncrement
	ActionDecrement
)

func (a Action) String() string {
	switch a {
	case ActionGet:
		return "get"
	case ActionIncrement:
		return "increment"
	case ActionDecrement:
		return "decrement"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction maps the textual form back to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "get":
		return ActionGet, nil
	case "increment":
		return ActionIncrement, nil
	case "decrement":
		return ActionDecrement, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Outcome is what the presentation boundary renders. Success implies Error
// is empty; a remote-reported failure arrives as Success=false with the
// message, never as a decode failure.
type Outcome struct {
	Value   string `json:"value"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Action  Action `json:"action"`
}

// Dispatcher is the single entry point the hosting web layer calls. It
// never returns an error; failures fold into the Outcome.
type Dispatcher struct {
	client *Client
	logger zerolog.Logger
}

// NewDispatcher wraps a pre-constructed client. The hosting layer supplies
// the client once; the dispatcher never constructs one per request.
func NewDispatcher(client *Client, logger *zerolog.Logger) *Dispatcher {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Dispatcher{client: client, logger: lg}
}

// Execute runs one action against the remote counter.
func (d *Dispatcher) Execute(ctx context.Context, action Action) Outcome {
	start := time.Now()
	var value string
	var err error
	switch action {
	case ActionGet:
		value, err = d.client.Get(ctx)
	case ActionIncrement:
		value, err = d.client.Increment(ctx)
	case ActionDecrement:
		value, err = d.client.Decrement(ctx)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownAction, int(action))
	}
	if err != nil {
		d.logger.Warn().
			Str("action", action.String()).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("counter action failed")
		return Outcome{Success: false, Error: err.Error(), Action: action}
	}
	d.logger.Debug().
		Str("action", action.String()).
		Str("value", value).
		Dur("elapsed", time.Since(start)).
		Msg("counter action complete")
	return Outcome{Value: value, Success: true, Action: action}
}
