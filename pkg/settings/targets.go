package settings

import (
	"time"

	"github.com/transcribersofreddit/torcore/pkg/config"
	"github.com/transcribersofreddit/torcore/pkg/domain"
)

// archiveTimeKey holds the shared archive timing in subreddits.json. It is
// never a subreddit name.
const archiveTimeKey = "archive_time"

// Target summarizes how the bots treat one subreddit.
type Target struct {
	Name               string
	Active             bool
	BypassDomainFilter bool
	UpvoteFilter       float64
	NoLinkHeader       bool
	ArchiveDelay       time.Duration
}

// Targets returns every configured subreddit with its per-target switches,
// sorted by name. Read on every call.
func (c *Cascade) Targets() ([]Target, error) {
	doc, err := config.LoadJSON(c.path(SubredditsFile))
	if err != nil {
		return nil, err
	}

	defaultDelay := doc.FloatAt(archiveTimeKey+".default_delay", 0)
	overrides := targetOverrides(doc)

	targets := make([]Target, 0, len(overrides))
	for _, name := range overrides.Keys() {
		sub := overrides.Child(name)
		targets = append(targets, Target{
			Name:               name,
			Active:             sub.BoolAt("active", true),
			BypassDomainFilter: sub.BoolAt("bypass_domain_filter", false),
			UpvoteFilter:       sub.FloatAt("upvote_filter", 0),
			NoLinkHeader:       sub.BoolAt("no_link_header", false),
			ArchiveDelay:       time.Duration(sub.FloatAt(archiveTimeKey, defaultDelay) * float64(time.Second)),
		})
	}
	return targets, nil
}

// targetOverrides returns the per-subreddit override objects. They are
// either nested under "subreddits" or stored at the top level next to the
// shared archive_time entry.
func targetOverrides(doc domain.Document) domain.Document {
	if nested := doc.Child("subreddits"); nested != nil {
		return nested
	}
	out := doc.Clone()
	delete(out, archiveTimeKey)
	return out
}
