package domain

// Category classifies a post's source domain for template selection.
type Category string

const (
	CategoryImages Category = "images"
	CategoryVideo  Category = "video"
	CategoryAudio  Category = "audio"
	CategoryOther  Category = "other"
)

// WhitelistCategories lists the categories backed by a configured domain
// list, in classification order. CategoryOther is the fallback and has no
// list of its own.
var WhitelistCategories = []Category{CategoryImages, CategoryVideo, CategoryAudio}

// DomainsPath returns the settings path holding the domain list for c.
func (c Category) DomainsPath() string {
	return "filters.domains." + string(c)
}

// Environment is the operating environment a deployment declares in its
// global settings.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Valid reports whether e is one of the known environments.
func (e Environment) Valid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvProduction:
		return true
	default:
		return false
	}
}
