package skill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Request is an inbound dispatch: either an explicit skill id with structured
// input, or free text to be resolved against the catalog.
type Request struct {
	SkillID string         `json:"skill_id,omitempty"`
	Text    string         `json:"text,omitempty"`
	Input   map[string]any `json:"input,omitempty"`
}

// ErrorKind classifies a failed dispatch for the rendering layer.
type ErrorKind string

const (
	ErrorSkillNotFound ErrorKind = "skill_not_found"
	ErrorUnresolved    ErrorKind = "unresolved_request"
	ErrorInvalidInput  ErrorKind = "invalid_input"
	ErrorTimeout       ErrorKind = "timeout"
	ErrorHandler       ErrorKind = "handler_failed"
)

// Envelope is the normalized outcome of a dispatch. Exactly one of the
// success fields or the error fields is populated, switched by OK.
type Envelope struct {
	OK           bool         `json:"ok"`
	SkillID      string       `json:"skill_id,omitempty"`
	ResponseType ResponseType `json:"response_type,omitempty"`
	Text         string       `json:"text,omitempty"`
	Payload      any          `json:"payload,omitempty"`
	FollowUps    []FollowUp   `json:"follow_ups,omitempty"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	Message      string       `json:"message,omitempty"`
}

const (
	// timeoutFactor scales a skill's latency estimate into its deadline.
	timeoutFactor = 3
	// defaultTimeout applies when a skill declares no estimate.
	defaultTimeout = 10 * time.Second
	// maxTimeout is the hard ceiling; no handler may hang a dispatch longer.
	maxTimeout = 30 * time.Second
	// maxFollowUps keeps the suggestion list renderable.
	maxFollowUps = 4
)

// defaultFollowUps is offered when a handler supplies no suggestions, so the
// chat surface never renders an empty list.
var defaultFollowUps = []FollowUp{
	{Label: "Pipeline health", Command: "show pipeline health"},
	{Label: "Research a prospect", Command: "research prospect Acme Corp"},
	{Label: "Deal recommendations", Command: "recommend deals to focus on"},
}

// Dispatcher resolves, validates, and executes requests against the registry.
// Dispatch calls are independent and safe to run concurrently; the registry
// is read-only by the time requests arrive.
type Dispatcher struct {
	reg      *Registry
	resolver Resolver
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil resolver falls back to the
// keyword resolver over the same registry.
func NewDispatcher(reg *Registry, resolver Resolver, logger *zap.Logger) *Dispatcher {
	if resolver == nil {
		resolver = NewKeywordResolver(reg)
	}
	return &Dispatcher{reg: reg, resolver: resolver, logger: logger}
}

// Dispatch runs one request to completion. All failures are folded into the
// envelope; no error escapes.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Envelope {
	def, extracted, env := d.resolveSkill(req)
	if env != nil {
		return env
	}

	// Resolver-extracted input fills gaps; explicit input always wins.
	input := make(map[string]any, len(extracted)+len(req.Input))
	for k, v := range extracted {
		input[k] = v
	}
	for k, v := range req.Input {
		input[k] = v
	}
	if err := def.Inputs.Validate(input); err != nil {
		var ve *ValidationError
		msg := err.Error()
		if errors.As(err, &ve) {
			msg = fmt.Sprintf("invalid input for %s: %v", def.ID, ve.Fields)
		}
		return failure(def.ID, ErrorInvalidInput, msg)
	}

	result, err := d.execute(ctx, def, input)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return failure(def.ID, ErrorTimeout,
			fmt.Sprintf("%s did not answer in time", def.ID))
	case err != nil:
		d.logger.Warn("skill handler failed",
			zap.String("skill", def.ID), zap.Error(err))
		return failure(def.ID, ErrorHandler,
			fmt.Sprintf("%s failed: %s", def.ID, err.Error()))
	}
	return normalize(def, result)
}

func (d *Dispatcher) resolveSkill(req *Request) (*Definition, map[string]any, *Envelope) {
	if req.SkillID != "" {
		def, err := d.reg.Get(req.SkillID)
		if err != nil {
			return nil, nil, failure(req.SkillID, ErrorSkillNotFound,
				fmt.Sprintf("no skill registered as %q", req.SkillID))
		}
		return def, nil, nil
	}
	res, ok := d.resolver.Resolve(req.Text)
	if !ok {
		return nil, nil, failure("", ErrorUnresolved,
			"I don't have a skill for that yet")
	}
	// The resolver only emits registered ids, but guard anyway.
	def, err := d.reg.Get(res.SkillID)
	if err != nil {
		return nil, nil, failure(res.SkillID, ErrorSkillNotFound,
			fmt.Sprintf("no skill registered as %q", res.SkillID))
	}
	return def, res.Input, nil
}

type execOutcome struct {
	result *Result
	err    error
}

// execute runs the handler in its own goroutine under the skill's deadline.
// On timeout the dispatcher stops waiting; the buffered channel lets the
// goroutine deliver its eventual result to nobody instead of blocking, so a
// late answer can never bleed into another dispatch.
func (d *Dispatcher) execute(ctx context.Context, def *Definition, input map[string]any) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutFor(def))
	defer cancel()

	done := make(chan execOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- execOutcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		result, err := def.Handler(ctx, input)
		done <- execOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func timeoutFor(def *Definition) time.Duration {
	t := time.Duration(def.EstimatedMs) * time.Millisecond * timeoutFactor
	if t <= 0 {
		t = defaultTimeout
	}
	if t > maxTimeout {
		t = maxTimeout
	}
	return t
}

// normalize shapes a handler result into the success envelope: the declared
// response type, the payload, and at most maxFollowUps suggestions (handler's
// own first, defaults otherwise).
func normalize(def *Definition, result *Result) *Envelope {
	if result == nil {
		result = &Result{}
	}
	followUps := result.FollowUps
	if len(followUps) == 0 {
		followUps = defaultFollowUps
	}
	if len(followUps) > maxFollowUps {
		followUps = followUps[:maxFollowUps]
	}
	return &Envelope{
		OK:           true,
		SkillID:      def.ID,
		ResponseType: def.ResponseType,
		Text:         result.Text,
		Payload:      result.Data,
		FollowUps:    followUps,
	}
}

func failure(skillID string, kind ErrorKind, msg string) *Envelope {
	return &Envelope{
		OK:        false,
		SkillID:   skillID,
		ErrorKind: kind,
		Message:   msg,
	}
}
