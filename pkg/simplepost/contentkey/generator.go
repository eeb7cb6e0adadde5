package contentkey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for content key strategies. The key doubles as the
// content pointer stored on a post.
type Generator interface {
	// GenerateKey creates a storage key for a new content object
	GenerateKey(objectID uuid.UUID) string
}

// FlatGenerator places every object directly under a prefix: {prefix}/{uuid}.md
type FlatGenerator struct {
	Prefix string
}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{Prefix: "content"}
}

func (g *FlatGenerator) GenerateKey(objectID uuid.UUID) string {
	return fmt.Sprintf("%s/%s.md", sanitizePathComponent(g.Prefix), objectID)
}

// GitLikeGenerator provides Git-style sharded keys so no directory grows unbounded:
// {prefix}/objects/ab/cd1234ef5678.md
type GitLikeGenerator struct {
	Prefix string
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{
		Prefix:      "posts",
		ShardLength: 2,
	}
}

func (g *GitLikeGenerator) GenerateKey(objectID uuid.UUID) string {
	hex := strings.ReplaceAll(objectID.String(), "-", "")

	shard := g.ShardLength
	if shard <= 0 || shard >= len(hex) {
		shard = 2
	}

	return fmt.Sprintf("%s/objects/%s/%s.md", sanitizePathComponent(g.Prefix), hex[:shard], hex[shard:])
}

// sanitizePathComponent keeps a prefix to safe path characters
func sanitizePathComponent(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '/' || r == ' ':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "content"
	}
	return out
}
