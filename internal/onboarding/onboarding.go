// Package onboarding decides whether a signed-in user has supplied the
// minimum profile fields needed to use inventory features.
package onboarding

import "brickvault-api/internal/model"

// IsComplete reports whether identity is set and carries both a display
// name and a Rebrickable API key.
func IsComplete(identity *model.Identity) bool {
	if identity == nil {
		return false
	}
	return identity.DisplayName != "" && identity.APIKey != ""
}

// Missing lists the profile fields still required, in display order.
func Missing(identity *model.Identity) []string {
	var out []string
	if identity == nil || identity.DisplayName == "" {
		out = append(out, "screen_name")
	}
	if identity == nil || identity.APIKey == "" {
		out = append(out, "rebrickable_api_key")
	}
	return out
}
