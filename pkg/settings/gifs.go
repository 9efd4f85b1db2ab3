package settings

import (
	"fmt"
	"sort"

	"github.com/transcribersofreddit/torcore/pkg/domain"
)

// Gifs holds one randomly chosen URL per configured GIF category.
type Gifs map[string]string

// Get returns the URL chosen for category.
func (g Gifs) Get(category string) string {
	return g[category]
}

// No returns the URL chosen for the "no" category.
func (g Gifs) No() string {
	return g["no"]
}

// ThumbsUp returns the URL chosen for the "thumbs_up" category.
func (g Gifs) ThumbsUp() string {
	return g["thumbs_up"]
}

// Categories returns the category names, sorted.
func (g Gifs) Categories() []string {
	out := make([]string, 0, len(g))
	for k := range g {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func pickGifs(settings domain.Document, intN func(int) int) (Gifs, error) {
	categories := settings.Child("gifs")
	if categories == nil {
		return nil, fmt.Errorf("gifs: %w", domain.ErrMissingKey)
	}

	out := make(Gifs, len(categories))
	for _, name := range categories.Keys() {
		urls := domain.AsStrings(categories[name])
		if len(urls) == 0 {
			return nil, fmt.Errorf("gifs.%s: %w", name, domain.ErrEmptySequence)
		}
		out[name] = urls[intN(len(urls))]
	}
	return out, nil
}
