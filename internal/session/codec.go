package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"unicode/utf8"

	"brickvault-api/internal/model"
)

// ErrCorruptSnapshot is returned by Decode for any value that does not
// reverse Encode into a usable identity.
var ErrCorruptSnapshot = errors.New("corrupt session snapshot")

// Encode serializes the identity as JSON and percent-encodes it so the
// value is safe inside a cookie. Identities that Decode would reject or
// alter (no id, invalid UTF-8) are refused with ErrCorruptSnapshot.
func Encode(identity model.Identity) (string, error) {
	if identity.ID == "" {
		return "", fmt.Errorf("%w: missing id", ErrCorruptSnapshot)
	}
	for field, v := range map[string]string{
		"id":                     identity.ID,
		"email":                  identity.Email,
		"name":                   identity.Name,
		"imageUrl":               identity.ImageURL,
		"screen_name":            identity.DisplayName,
		"rebrickable_api_key":    identity.APIKey,
		"rebrickable_user_token": identity.APIUserToken,
		"token":                  identity.AccessToken,
	} {
		if !utf8.ValidString(v) {
			return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrCorruptSnapshot, field)
		}
	}

	raw, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal identity: %w", err)
	}
	return url.QueryEscape(string(raw)), nil
}

// Decode is the exact inverse of Encode. A value that is not
// percent-encoded JSON, is not a JSON object, or carries no id is reported
// as ErrCorruptSnapshot.
func Decode(value string) (*model.Identity, error) {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrCorruptSnapshot)
	}

	var identity model.Identity
	if err := json.Unmarshal(trimmed, &identity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrCorruptSnapshot)
	}
	return &identity, nil
}
