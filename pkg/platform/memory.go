package platform

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Message is a message recorded by MemoryClient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MemoryClient is an in-memory implementation of Client. Subreddits must be
// added with AddSubreddit before use; unknown subreddits report ErrNotFound.
type MemoryClient struct {
	mu         sync.RWMutex
	subreddits map[string]*memorySubreddit
	sent       []Message
}

// NewMemoryClient creates a new MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		subreddits: make(map[string]*memorySubreddit),
	}
}

// AddSubreddit registers a subreddit with the given moderators.
func (c *MemoryClient) AddSubreddit(name string, moderators ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subreddits[strings.ToLower(name)] = &memorySubreddit{
		name:       name,
		moderators: append([]string(nil), moderators...),
		wiki:       make(map[string]string),
	}
}

// SetWikiPage stores content for page, creating the page if needed.
func (c *MemoryClient) SetWikiPage(subreddit, page, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.subreddits[strings.ToLower(subreddit)]
	if !ok {
		return fmt.Errorf("subreddit %s: %w", subreddit, ErrNotFound)
	}
	sub.wiki[page] = content
	return nil
}

// Subreddit returns a handle for name. Lookups are case-insensitive.
func (c *MemoryClient) Subreddit(name string) Subreddit {
	return &memoryHandle{client: c, name: name}
}

// SendMessage records a private message.
func (c *MemoryClient) SendMessage(_ context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns every recorded message, including modmail sent to
// subreddits as "/r/<name>".
func (c *MemoryClient) Sent() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}

type memorySubreddit struct {
	name       string
	moderators []string
	wiki       map[string]string
}

type memoryHandle struct {
	client *MemoryClient
	name   string
}

func (h *memoryHandle) Name() string {
	return h.name
}

func (h *memoryHandle) lookup() (*memorySubreddit, error) {
	sub, ok := h.client.subreddits[strings.ToLower(h.name)]
	if !ok {
		return nil, fmt.Errorf("subreddit %s: %w", h.name, ErrNotFound)
	}
	return sub, nil
}

func (h *memoryHandle) Moderators(_ context.Context) ([]string, error) {
	h.client.mu.RLock()
	defer h.client.mu.RUnlock()

	sub, err := h.lookup()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), sub.moderators...), nil
}

func (h *memoryHandle) WikiPage(_ context.Context, page string) (string, error) {
	h.client.mu.RLock()
	defer h.client.mu.RUnlock()

	sub, err := h.lookup()
	if err != nil {
		return "", err
	}
	content, ok := sub.wiki[page]
	if !ok {
		return "", fmt.Errorf("wiki page %s: %w", page, ErrNotFound)
	}
	return content, nil
}

func (h *memoryHandle) EditWikiPage(_ context.Context, page, content string) error {
	h.client.mu.Lock()
	defer h.client.mu.Unlock()

	sub, err := h.lookup()
	if err != nil {
		return err
	}
	if _, ok := sub.wiki[page]; !ok {
		return fmt.Errorf("wiki page %s: %w", page, ErrNotFound)
	}
	sub.wiki[page] = content
	return nil
}

func (h *memoryHandle) Message(_ context.Context, subject, body string) error {
	h.client.mu.Lock()
	defer h.client.mu.Unlock()

	sub, err := h.lookup()
	if err != nil {
		return err
	}
	h.client.sent = append(h.client.sent, Message{To: "/r/" + sub.name, Subject: subject, Body: body})
	return nil
}
