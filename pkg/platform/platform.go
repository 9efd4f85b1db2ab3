// Package platform abstracts the discussion platform the bots act on:
// subreddits, their wiki pages and moderators, and private messages.
package platform

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a subreddit, wiki page or user does not exist.
var ErrNotFound = errors.New("not found")

// Client is the platform session a bot runs under.
type Client interface {
	// Subreddit returns a handle for name. No request is made until a
	// method of the handle is called.
	Subreddit(name string) Subreddit

	// SendMessage sends a private message to a user.
	SendMessage(ctx context.Context, to, subject, body string) error
}

// Subreddit is a handle on one community.
type Subreddit interface {
	// Name returns the subreddit name without the /r/ prefix.
	Name() string

	// Moderators lists the usernames moderating the subreddit.
	Moderators(ctx context.Context) ([]string, error)

	// WikiPage returns the markdown content of a wiki page.
	WikiPage(ctx context.Context, page string) (string, error)

	// EditWikiPage replaces the content of a wiki page.
	EditWikiPage(ctx context.Context, page, content string) error

	// Message sends a modmail message to the subreddit.
	Message(ctx context.Context, subject, body string) error
}
