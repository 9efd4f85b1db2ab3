package bot

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/transcribersofreddit/torcore/internal/governance"
	"github.com/transcribersofreddit/torcore/pkg/telemetry"
)

// PollFunc is one iteration of a bot's main loop.
type PollFunc func(ctx context.Context, b *Bot) error

// RunUntilDead calls fn in a loop until ctx is cancelled or fn fails for
// good. Transient errors back off according to the retry policy, a flat 60
// seconds by default. Any other error is reported through ExplodeGracefully
// and returned. Cancellation is a clean shutdown and returns nil.
func (b *Bot) RunUntilDead(ctx context.Context, fn PollFunc, isTransient func(error) bool) error {
	retry := governance.NewRetryPolicy(b.retry, isTransient)
	attempt := 0

	for {
		if ctx.Err() != nil {
			b.logger.Info("User triggered shutdown. Shutting down.")
			return nil
		}

		err := fn(ctx, b)
		switch {
		case err == nil:
			attempt = 0

		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			b.logger.Info("User triggered shutdown. Shutting down.")
			return nil

		case retry.ShouldRetry(err, attempt):
			backoff := retry.CalculateBackoff(attempt)
			b.logger.Warn("Issue communicating with Reddit, backing off",
				"error", err, "attempt", attempt+1, "backoff", backoff)
			b.metrics.RecordPollError("transient")
			telemetry.RecordPollError(ctx, "transient", backoff)
			attempt++
			if governance.Wait(ctx, backoff) != nil {
				b.logger.Info("User triggered shutdown. Shutting down.")
				return nil
			}

		default:
			if attempt > 0 && retry.ShouldRetry(err, 0) {
				err = governance.Exhausted(err)
			}
			b.metrics.RecordPollError("fatal")
			telemetry.RecordPollError(ctx, "fatal", 0)
			b.ExplodeGracefully(context.WithoutCancel(ctx), err)
			return err
		}
	}
}

// ExplodeGracefully logs err and tells the primary subreddit's moderators
// the bot went down. Failing to send the message is only logged.
func (b *Bot) ExplodeGracefully(ctx context.Context, err error) {
	b.logger.Error("Bot crashed", "error", err)

	subject := fmt.Sprintf("%s BROKE - %s", b.name, ErrorTypeName(err))
	body := "Please check the logs for the complete error."
	if msgErr := b.Primary().Message(ctx, subject, body); msgErr != nil {
		b.logger.Error("Failed to report crash", "subreddit", b.PrimaryName(), "error", msgErr)
	}
}

// ErrorTypeName names the most specific error type in err's tree, upper
// cased: a wrapped *net.OpError becomes "OPERROR". Plain sentinel and
// wrapping errors yield "ERROR".
func ErrorTypeName(err error) string {
	if name := typeName(err); name != "" {
		return name
	}
	return "ERROR"
}

func typeName(err error) string {
	if err == nil {
		return ""
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.PkgPath() + "." + t.Name() {
	case "errors.errorString", "fmt.wrapError", "fmt.wrapErrors", "errors.joinError":
	default:
		if t.Name() != "" {
			return strings.ToUpper(t.Name())
		}
	}

	switch x := err.(type) {
	case interface{ Unwrap() error }:
		return typeName(x.Unwrap())
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if name := typeName(e); name != "" {
				return name
			}
		}
	}
	return ""
}
