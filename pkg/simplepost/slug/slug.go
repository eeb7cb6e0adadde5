// Package slug derives short URL-safe identifiers from free text.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLength is the longest slug a Post accepts
const DefaultMaxLength = 32

// DefaultFallbackPrefix prefixes slugs derived from text without usable characters
const DefaultFallbackPrefix = "post"

var validSlug = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// letters that have no canonical decomposition to ASCII
var extraLetters = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"đ", "d",
	"ð", "d",
	"ł", "l",
	"þ", "th",
	"ı", "i",
)

// Generator defines the interface for slug derivation strategies
type Generator interface {
	// Generate derives a slug from text. The result is deterministic for a given input.
	Generate(text string) string
}

// Transliterator lower-cases text, folds accented letters to ASCII and joins words with hyphens
type Transliterator struct {
	// MaxLength bounds the slug length (default: 32)
	MaxLength int
	// FallbackPrefix is used when the text contains no letters or digits (default: "post")
	FallbackPrefix string
}

// New creates a Transliterator with default settings
func New() *Transliterator {
	return &Transliterator{
		MaxLength:      DefaultMaxLength,
		FallbackPrefix: DefaultFallbackPrefix,
	}
}

// Generate implements Generator
func (g *Transliterator) Generate(text string) string {
	maxLength := g.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	s := truncate(hyphenate(fold(text)), maxLength)
	if s != "" {
		return s
	}

	prefix := g.FallbackPrefix
	if prefix == "" {
		prefix = DefaultFallbackPrefix
	}
	sum := sha256.Sum256([]byte(text))
	return truncate(hyphenate(prefix+"-"+hex.EncodeToString(sum[:4])), maxLength)
}

// IsValid reports whether s is a well-formed slug: lower-case ASCII letters and digits
// separated by single hyphens.
func IsValid(s string) bool {
	return validSlug.MatchString(s)
}

func fold(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	return extraLetters.Replace(folded)
}

func hyphenate(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// truncate cuts s to at most n bytes, preferring the last word boundary. s is ASCII.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if s[n] != '-' {
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.Trim(cut, "-")
}
