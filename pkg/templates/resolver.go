// Package templates resolves the content template a bot posts for a given
// source domain.
//
// Templates live under <base>/templates/<category>/. A domain-specific file
// named <domain>.md takes precedence over the category default base.md.
// Nothing is cached: every call reads the disk, so operators can edit
// templates without restarting the bots.
package templates

import (
	"path/filepath"

	"github.com/transcribersofreddit/torcore/pkg/config"
	"github.com/transcribersofreddit/torcore/pkg/domain"
)

const (
	templatesDir = "templates"
	baseTemplate = "base.md"
)

// Resolver maps source domains to categories and template bodies.
type Resolver struct {
	base     string
	settings domain.Document
}

// NewResolver returns a Resolver reading templates below basePath and
// classifying domains with the filter lists in settings.
func NewResolver(basePath string, settings domain.Document) *Resolver {
	if settings == nil {
		settings = domain.Document{}
	}
	return &Resolver{base: basePath, settings: settings}
}

// URLType classifies host into images, video or audio by membership in the
// configured domain lists, tested in that order. Unlisted hosts are other.
func (r *Resolver) URLType(host string) domain.Category {
	for _, category := range domain.WhitelistCategories {
		for _, listed := range r.settings.StringsAt(category.DomainsPath()) {
			if listed == host {
				return category
			}
		}
	}
	return domain.CategoryOther
}

// Content returns the template for host: the domain-specific file when it
// exists, otherwise the category's base.md. A missing base.md is a
// packaging defect and surfaces as domain.ErrFileNotFound.
func (r *Resolver) Content(host string) (string, error) {
	return config.LoadFile(r.Path(host))
}

// Path returns the template file Content would read for host right now.
func (r *Resolver) Path(host string) string {
	dir := filepath.Join(r.base, templatesDir, string(r.URLType(host)))

	specific := filepath.Join(dir, host+".md")
	if host != "" && config.IsValidFile(specific) {
		return specific
	}
	return filepath.Join(dir, baseTemplate)
}
