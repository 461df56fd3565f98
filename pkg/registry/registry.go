// Copyright 2025 Certen Protocol
//
// Package registry validates event types against the shape contract,
// resolves legacy aliases, and gates schema versions.
package registry

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// shapePattern enforces SCREAMING_SNAKE_CASE with at least one
// underscore-delimited segment pair, e.g. ASSET_REGISTERED.
var shapePattern = regexp.MustCompile(`^[A-Z]+(_[A-Z]+)+$`)

// aliasFile is the on-disk shape of the legacy-alias table.
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// Registry holds the legacy-alias table, the recognized-type set, and
// the currently accepted schema version.
type Registry struct {
	aliases       map[string]string
	recognized    map[string]struct{}
	currentSchema int
}

// New returns a Registry with no aliases and no recognized-type set
// configured.
func New(currentSchemaVersion int) *Registry {
	return &Registry{aliases: map[string]string{}, currentSchema: currentSchemaVersion}
}

// Register adds eventType(s) to the recognized set. The core never
// hardcodes domain event names; once the caller has registered at
// least one type, Normalize rejects any shape-valid type outside the
// set. An unconfigured (empty) set accepts any shape-valid type.
func (r *Registry) Register(eventTypes ...string) {
	if r.recognized == nil {
		r.recognized = make(map[string]struct{}, len(eventTypes))
	}
	for _, t := range eventTypes {
		r.recognized[t] = struct{}{}
	}
}

// LoadAliases reads a YAML alias file of the form:
//
//	aliases:
//	  LEGACY_EVENT_NAME: CANONICAL_EVENT_NAME
//
// A zero-length path is a no-op (no legacy aliases configured).
func (r *Registry) LoadAliases(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: read alias file: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("registry: parse alias file: %w", err)
	}
	for legacy, canonical := range f.Aliases {
		if !shapePattern.MatchString(canonical) {
			return fmt.Errorf("registry: alias %q targets malformed event type %q", legacy, canonical)
		}
		r.aliases[legacy] = canonical
	}
	return nil
}

// Normalize validates eventType's shape (after alias resolution) and
// returns its canonical form.
func (r *Registry) Normalize(eventType string) (string, error) {
	if eventType == "" {
		return "", fmt.Errorf("registry: event type must not be empty")
	}
	resolved := eventType
	if canonical, ok := r.aliases[eventType]; ok {
		resolved = canonical
	}
	if !shapePattern.MatchString(resolved) {
		return "", fmt.Errorf("registry: event type %q does not match the required SCREAMING_SNAKE_CASE shape", resolved)
	}
	if len(r.recognized) > 0 {
		if _, ok := r.recognized[resolved]; !ok {
			return "", fmt.Errorf("registry: event type %q is not in the recognized set", resolved)
		}
	}
	return resolved, nil
}

// CheckSchemaVersion requires version to exactly equal the registry's
// current major version. There is no tolerance for older or newer
// producers: a schema bump obsoletes every prior version at once.
func (r *Registry) CheckSchemaVersion(version int) error {
	if version <= 0 {
		return fmt.Errorf("registry: schema version must be positive, got %d", version)
	}
	if version != r.currentSchema {
		return fmt.Errorf("registry: schema version %d does not match the current accepted version %d", version, r.currentSchema)
	}
	return nil
}
