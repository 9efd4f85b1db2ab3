package policy

import "github.com/transcribersofreddit/torcore/pkg/domain"

// PostConstraintSet decides whether a candidate post is accepted, based on
// its source domain and score.
//
//	filters := policy.NewPostConstraintSet(settings)
//	if filters.URLAllowed("i.redd.it") && filters.ScoreAllowed(post.Score) {
//		...
//	}
type PostConstraintSet struct {
	settings domain.Document
}

// NewPostConstraintSet wraps the filter configuration in settings. A nil
// document behaves as an empty one.
func NewPostConstraintSet(settings domain.Document) *PostConstraintSet {
	if settings == nil {
		settings = domain.Document{}
	}
	return &PostConstraintSet{settings: settings}
}

// URLAllowed reports whether host is whitelisted. The bypass_domain_filter
// flag allows everything, and so does an empty whitelist: no whitelist
// means no restriction.
func (p *PostConstraintSet) URLAllowed(host string) bool {
	if p.settings.BoolAt("bypass_domain_filter", false) {
		return true
	}

	allowed := p.AllowedDomains()
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		if d == host {
			return true
		}
	}
	return false
}

// AllowedDomains returns the union of the audio, video and images domain
// lists. Duplicates are kept.
func (p *PostConstraintSet) AllowedDomains() []string {
	var allowed []string
	for _, category := range []domain.Category{domain.CategoryImages, domain.CategoryVideo, domain.CategoryAudio} {
		allowed = append(allowed, p.settings.StringsAt(category.DomainsPath())...)
	}
	return allowed
}

// ScoreAllowed reports whether score meets upvote_filter, which defaults
// to 0.
func (p *PostConstraintSet) ScoreAllowed(score int) bool {
	return float64(score) >= p.Threshold()
}

// Threshold returns the configured minimum score.
func (p *PostConstraintSet) Threshold() float64 {
	return p.settings.FloatAt("upvote_filter", 0)
}
