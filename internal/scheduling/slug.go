package scheduling

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

// maxSlugLen bounds the normalized title part of a slug; a random
// suffix may still be appended past it.
const maxSlugLen = 100

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_]+`)
)

// Slugify normalizes a title into its slug form: lowercase, strip
// anything that is not a word character, whitespace or hyphen,
// collapse whitespace runs into single hyphens and truncate to
// maxSlugLen. It returns "" when nothing survives normalization.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	return s
}

// SlugChecker is the uniqueness probe the allocator needs.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// SlugAllocator derives unique human-readable identifiers from event
// titles.
type SlugAllocator struct {
	Store SlugChecker
}

// Allocate returns a unique slug for title, appending suffix when
// given. On collision it retries with a fresh random 6-character
// suffix until an unused slug is found. The normalized title must be
// non-empty before any suffixing, otherwise a ValidationError is
// returned.
func (a *SlugAllocator) Allocate(ctx context.Context, title, suffix string) (string, error) {
	base := Slugify(title)
	if base == "" {
		return "", &ValidationError{Field: "title", Reason: "title produces an empty slug"}
	}
	candidate := base
	if suffix != "" {
		candidate = base + "-" + suffix
	}
	exists, err := a.Store.SlugExists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !exists {
		return candidate, nil
	}
	next, err := randomSuffix()
	if err != nil {
		return "", err
	}
	return a.Allocate(ctx, title, next)
}

// randomSuffix returns 6 hex characters from a CSPRNG.
func randomSuffix() (string, error) {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
