// Package chat routes inbound gateway messages through the dispatcher and
// renders the response envelope back to the originating platform. Selecting a
// rendered follow-up just means typing its command, which arrives here as an
// ordinary new message — the command string round-trips unchanged.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhq/pipewise/internal/gateway"
	"github.com/kestrelhq/pipewise/internal/skill"
	"github.com/kestrelhq/pipewise/internal/telemetry"
	"go.uber.org/zap"
)

// Router turns chat messages into dispatches.
type Router struct {
	dispatcher *skill.Dispatcher
	gw         *gateway.Gateway
	recorder   *telemetry.Recorder
	logger     *zap.Logger
}

// New creates a chat Router.
func New(dispatcher *skill.Dispatcher, gw *gateway.Gateway, recorder *telemetry.Recorder, logger *zap.Logger) *Router {
	return &Router{
		dispatcher: dispatcher,
		gw:         gw,
		recorder:   recorder,
		logger:     logger,
	}
}

// Handle processes one inbound message. Signature matches
// gateway.MessageHandler.
func (r *Router) Handle(msg *gateway.InboundMessage) {
	ctx := context.Background()
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return
	}

	r.logger.Info("routing chat message",
		zap.String("platform", msg.Platform),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserName),
	)

	start := time.Now()
	env := r.dispatcher.Dispatch(ctx, &skill.Request{Text: text})
	r.recorder.Record(ctx, &telemetry.Event{
		RequestID:  uuid.New().String(),
		Surface:    msg.Platform,
		SkillID:    env.SkillID,
		OK:         env.OK,
		ErrorKind:  string(env.ErrorKind),
		DurationMs: time.Since(start).Milliseconds(),
	})

	r.sendReply(ctx, msg, Render(env))
}

// Render formats an envelope for a plain-text chat surface.
func Render(env *skill.Envelope) string {
	if !env.OK {
		return renderFailure(env)
	}

	var b strings.Builder
	if env.Text != "" {
		b.WriteString(env.Text)
	} else {
		b.WriteString("Done.")
	}
	if len(env.FollowUps) > 0 {
		b.WriteString("\n\nYou could ask:")
		for _, f := range env.FollowUps {
			fmt.Fprintf(&b, "\n  %s — \"%s\"", f.Label, f.Command)
		}
	}
	return b.String()
}

// renderFailure maps error kinds to operator-friendly wording; raw error
// strings stay in the logs.
func renderFailure(env *skill.Envelope) string {
	switch env.ErrorKind {
	case skill.ErrorUnresolved:
		return "I don't have a skill for that yet. Try \"help\" to see what I can do."
	case skill.ErrorSkillNotFound:
		return fmt.Sprintf("I don't know a skill called %q. Try \"help\".", env.SkillID)
	case skill.ErrorInvalidInput:
		return "That request is missing something: " + env.Message
	case skill.ErrorTimeout:
		return "That took too long and I gave up. Try again in a moment."
	default:
		return "Something went wrong handling that: " + env.Message
	}
}

func (r *Router) sendReply(ctx context.Context, orig *gateway.InboundMessage, text string) {
	err := r.gw.Send(ctx, &gateway.OutboundMessage{
		Platform:  orig.Platform,
		ChannelID: orig.ChannelID,
		Content:   text,
		ReplyTo:   orig.ReplyTo,
	})
	if err != nil {
		r.logger.Error("send reply failed", zap.Error(err))
	}
}
