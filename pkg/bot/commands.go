package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/transcribersofreddit/torcore/pkg/domain"
	"github.com/transcribersofreddit/torcore/pkg/policy"
	"github.com/transcribersofreddit/torcore/pkg/telemetry"
)

const outcomeError = "error"

// HandleCommand authorizes author for command name and runs its handler.
// A denied caller gets a random rejection message as the reply, with no
// error. Handler failures are returned as-is.
func (b *Bot) HandleCommand(ctx context.Context, author, name, body, messageID string) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tor.command")
	defer span.End()
	start := time.Now()

	cascade := b.Config()
	commands, err := cascade.Commands()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to load commands: %w", err)
	}

	permission := commands.Allows(name).ByUser(author)
	outcome := policy.OutcomeOf(permission.Allowed())
	telemetry.RecordDecisionEvent(span, "command", permission.Allowed(), "",
		attribute.String("command.name", permission.Name()),
		attribute.String("command.author", author),
		attribute.String("command.body", body),
	)

	if !permission.Allowed() {
		b.logger.Info("Command denied", "command", permission.Name(), "author", author, "message_id", messageID)
		b.recordCommand(ctx, permission.Name(), string(outcome), time.Since(start))
		return commands.No()
	}

	b.logger.Info("Running command", "command", permission.Name(), "author", author, "message_id", messageID)
	reply, err := commands.Func(name)(ctx, author, body, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotImplemented) {
			b.logger.Warn("Command has no registered handler",
				"command", permission.Name(), "handler", permission.Definition().Handler)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "command failed")
		b.recordCommand(ctx, permission.Name(), outcomeError, time.Since(start))
		return "", fmt.Errorf("command %s: %w", permission.Name(), err)
	}

	b.recordCommand(ctx, permission.Name(), string(outcome), time.Since(start))
	return reply, nil
}

func (b *Bot) recordCommand(ctx context.Context, name, outcome string, d time.Duration) {
	b.metrics.RecordCommand(name, outcome)
	telemetry.RecordCommandMetrics(ctx, telemetry.CommandMetrics{
		Subreddit: b.PrimaryName(),
		Command:   name,
		Outcome:   outcome,
		Duration:  d,
	})
}

// AcceptPost reports whether a post from host with score passes the
// filters of target.
func (b *Bot) AcceptPost(ctx context.Context, target, host string, score int) (bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tor.post")
	defer span.End()

	cascade, err := b.Target(target)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	filters, err := cascade.Filters()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	resolver, err := cascade.Templates()
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	reason := ""
	switch {
	case !filters.URLAllowed(host):
		reason = "domain"
	case !filters.ScoreAllowed(score):
		reason = "score"
	}
	allowed := reason == ""
	category := string(resolver.URLType(host))
	outcome := string(policy.OutcomeOf(allowed))

	telemetry.RecordDecisionEvent(span, "post", allowed, reason,
		attribute.String("subreddit", target),
		attribute.String("post.domain", host),
		attribute.Int("post.score", score),
	)
	telemetry.RecordPostMetrics(ctx, telemetry.PostMetrics{
		Subreddit: target,
		Category:  category,
		Outcome:   outcome,
		Reason:    reason,
	})
	b.metrics.RecordPost(target, outcome)

	b.logger.Debug("Post filtered", "subreddit", target, "domain", host, "score", score, "outcome", outcome, "reason", reason)
	return allowed, nil
}
