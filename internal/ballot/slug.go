package ballot

import (
	"strings"

	"github.com/google/uuid"
)

const uuidLen = 36

// SlugID returns the alternate ballot ID carried by a voter URL slug. A slug
// ending in a full UUID yields that UUID; otherwise the last "-" separated
// segment is returned. It returns "" for an empty slug.
func SlugID(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}
	if n := len(slug); n >= uuidLen {
		tail := slug[n-uuidLen:]
		if IsUUID(tail) && (n == uuidLen || slug[n-uuidLen-1] == '-') {
			return tail
		}
	}
	parts := strings.Split(slug, "-")
	return parts[len(parts)-1]
}

// IsUUID reports whether id is a canonical hyphenated UUID.
func IsUUID(id string) bool {
	if len(id) != uuidLen {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
