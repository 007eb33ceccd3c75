// Package validation checks image references before anything is fetched.
package validation

import (
	"net/url"
	"strings"

	apperrors "go-attack-planner/internal/errors"
)

// DefaultSchemes are the reference schemes the service can fetch.
var DefaultSchemes = []string{"http", "https", "azblob"}

// ReferenceValidator handles image reference validation logic
type ReferenceValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewReferenceValidator accepts the given schemes from any host.
func NewReferenceValidator(schemes ...string) *ReferenceValidator {
	if len(schemes) == 0 {
		schemes = DefaultSchemes
	}
	return &ReferenceValidator{
		allowedSchemes: append([]string{}, schemes...),
	}
}

// NewReferenceValidatorWithOptions creates a validator that also restricts hosts
func NewReferenceValidatorWithOptions(schemes []string, hosts []string) *ReferenceValidator {
	v := NewReferenceValidator(schemes...)
	v.allowedHosts = append([]string{}, hosts...)
	return v
}

// Validate returns an input error describing why ref cannot be fetched.
func (v *ReferenceValidator) Validate(ref string) (*url.URL, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, apperrors.NewInputError("Image reference cannot be empty", nil)
	}

	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, apperrors.NewInputError("Invalid image reference format", err)
	}

	if !v.isSchemeAllowed(parsed.Scheme) {
		return nil, apperrors.NewInputError("Image reference scheme not allowed", nil)
	}

	if parsed.Host == "" {
		return nil, apperrors.NewInputError("Image reference must have a valid host", nil)
	}

	// Blob references name the container as host and need a blob path.
	if parsed.Scheme == "azblob" && strings.Trim(parsed.Path, "/") == "" {
		return nil, apperrors.NewInputError("Blob reference must name a blob", nil)
	}

	if !v.isHostAllowed(parsed.Host) {
		return nil, apperrors.NewInputError("Image reference host not allowed", nil)
	}

	return parsed, nil
}

func (v *ReferenceValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *ReferenceValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
