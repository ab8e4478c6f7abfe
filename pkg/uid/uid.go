package uid

import (
	"crypto/sha256"
	"regexp"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// uuidV4Pattern is the canonical 36-character UUID v4 form, case-insensitive.
var uuidV4Pattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// IsValidV4 reports whether id is a canonical, hyphenated UUID v4.
// uuid.Parse also accepts braced, urn and unhyphenated forms, so the
// shape is checked separately.
func IsValidV4(id string) bool {
	if !uuidV4Pattern.MatchString(id) {
		return false
	}
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.Version() == 4 && parsed.Variant() == uuid.RFC4122
}

// DeriveV4 maps an arbitrary stable subject (e.g. an identity provider "sub")
// to a deterministic UUID carrying the v4 version and RFC 4122 variant bits.
func DeriveV4(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	var id uuid.UUID
	copy(id[:], sum[:16])
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id.String()
}

// NewKSUID generates a new globally unique, time-ordered KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IsKSUID reports whether s parses as a KSUID.
func IsKSUID(s string) bool {
	_, err := ksuid.Parse(s)
	return err == nil
}
