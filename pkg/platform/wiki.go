package platform

import (
	"context"
	"errors"
	"log/slog"
)

// GetWikiPage returns the content of page, or fallback when the page does
// not exist or is empty. Other errors are returned as-is.
func GetWikiPage(ctx context.Context, sub Subreddit, page, fallback string) (string, error) {
	content, err := sub.WikiPage(ctx, page)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	if content == "" {
		return fallback, nil
	}
	return content, nil
}

// UpdateWikiPage replaces the content of page. A missing page is logged and
// otherwise ignored.
func UpdateWikiPage(ctx context.Context, logger *slog.Logger, sub Subreddit, page, content string) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Updating wiki page", "subreddit", sub.Name(), "page", page)

	err := sub.EditWikiPage(ctx, page, content)
	if errors.Is(err, ErrNotFound) {
		logger.Error("Requested wiki page not found, cannot update",
			"subreddit", sub.Name(), "page", page, "error", err)
		return nil
	}
	return err
}
