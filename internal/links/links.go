// Package links wraps external meeting URLs behind short, stable identifiers
// so the calendar can gate access to them by session state.
package links

import (
	"crypto/rand"
	"errors"
	"math/big"
	"net/url"
	"strings"
	"time"
)

const (
	// IdentifierLength is the number of random characters in an identifier.
	IdentifierLength = 12
	groupSize        = 3
	alphabet         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	pathPrefix       = "/links/"
)

var (
	// ErrInvalidURL is returned for anything other than an absolute http(s) URL.
	ErrInvalidURL = errors.New("links: invalid URL")
	// ErrInvalidIdentifier is returned when an identifier is malformed.
	ErrInvalidIdentifier = errors.New("links: invalid identifier")
)

// Link is an opaque reference to an external URL.
type Link struct {
	ID         string
	Identifier string
	URL        string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Path returns the stable redirect path for the link.
func (l Link) Path() string {
	if l.Identifier == "" {
		return ""
	}
	return Path(l.Identifier)
}

// Path returns the redirect path for identifier.
func Path(identifier string) string {
	return pathPrefix + identifier
}

// IdentifierFromPath extracts the identifier from a redirect path.
func IdentifierFromPath(path string) (string, error) {
	identifier := strings.Trim(strings.TrimPrefix(path, pathPrefix), "/")
	if !ValidIdentifier(identifier) {
		return "", ErrInvalidIdentifier
	}
	return identifier, nil
}

// NewIdentifier returns twelve random alphanumerics in dash separated groups
// of three, e.g. "aZ3-k9Q-0pL-xY7".
func NewIdentifier() (string, error) {
	var b strings.Builder
	b.Grow(IdentifierLength + IdentifierLength/groupSize - 1)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < IdentifierLength; i++ {
		if i > 0 && i%groupSize == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// ValidIdentifier reports whether s has the shape produced by NewIdentifier.
func ValidIdentifier(s string) bool {
	groups := strings.Split(s, "-")
	if len(groups) != IdentifierLength/groupSize {
		return false
	}
	for _, g := range groups {
		if len(g) != groupSize {
			return false
		}
		for i := 0; i < len(g); i++ {
			if !strings.ContainsRune(alphabet, rune(g[i])) {
				return false
			}
		}
	}
	return true
}

// NormalizeURL trims raw and checks it is an absolute http or https URL.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidURL
	}
	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return "", ErrInvalidURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return parsed.String(), nil
}
