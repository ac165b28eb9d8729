package simpleassets

import (
	"fmt"
	"regexp"
	"strings"
)

// Defaults for the tenant expression configuration.
const (
	DefaultNamePattern   = "[a-zA-Z0-9_ -]+"
	DefaultOpeningMarker = ";"
	DefaultClosingMarker = ";"
)

// NamePolicy validates asset names against a tenant-configured pattern and
// extracts asset references embedded in free text between the tenant's
// opening and closing markers.
type NamePolicy struct {
	namePattern  *regexp.Regexp
	refPattern   *regexp.Regexp
	opening      string
	closing      string
	ignoreSpaces bool
}

// NamePolicyConfig configures a NamePolicy. Zero values fall back to the
// package defaults.
type NamePolicyConfig struct {
	Pattern      string // name pattern, anchored to the whole name
	Opening      string // marker preceding a reference in text
	Closing      string // marker following a reference in text
	IgnoreSpaces bool   // compare names with spaces removed
}

// NewNamePolicy compiles a NamePolicy from config.
func NewNamePolicy(cfg NamePolicyConfig) (*NamePolicy, error) {
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultNamePattern
	}
	if cfg.Opening == "" {
		cfg.Opening = DefaultOpeningMarker
	}
	if cfg.Closing == "" {
		cfg.Closing = DefaultClosingMarker
	}

	namePattern, err := regexp.Compile("^(?:" + cfg.Pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("compile name pattern: %w", err)
	}

	refPattern, err := regexp.Compile(
		"^" + regexp.QuoteMeta(cfg.Opening) + "(" + cfg.Pattern + ")" + regexp.QuoteMeta(cfg.Closing) + "$")
	if err != nil {
		return nil, fmt.Errorf("compile reference pattern: %w", err)
	}

	return &NamePolicy{
		namePattern:  namePattern,
		refPattern:   refPattern,
		opening:      cfg.Opening,
		closing:      cfg.Closing,
		ignoreSpaces: cfg.IgnoreSpaces,
	}, nil
}

// Validate checks a proposed asset name against the tenant pattern. The
// pattern must match the entire name.
func (p *NamePolicy) Validate(name string) error {
	if !p.namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q does not match pattern %s", ErrInvalidName, name, p.namePattern)
	}
	return nil
}

// ExtractReference returns the asset name enclosed by the tenant's markers
// when text is exactly one reference (e.g. ";sadcat;" -> "sadcat"). The
// second return is false when text is not a reference.
func (p *NamePolicy) ExtractReference(text string) (string, bool) {
	m := p.refPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IgnoreSpaces reports whether name comparisons fold spaces for this tenant.
func (p *NamePolicy) IgnoreSpaces() bool {
	return p.ignoreSpaces
}
