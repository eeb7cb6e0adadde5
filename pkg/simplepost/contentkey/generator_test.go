package contentkey

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGitLikeGenerator(t *testing.T) {
	id := uuid.MustParse("12345678-1234-1234-1234-123456789abc")

	g := NewGitLikeGenerator()
	assert.Equal(t, "posts/objects/12/345678123412341234123456789abc.md", g.GenerateKey(id))

	g = &GitLikeGenerator{Prefix: "Blog Posts", ShardLength: 4}
	assert.Equal(t, "blog-posts/objects/1234/5678123412341234123456789abc.md", g.GenerateKey(id))

	g = &GitLikeGenerator{}
	assert.Equal(t, "content/objects/12/345678123412341234123456789abc.md", g.GenerateKey(id))
}

func TestFlatGenerator(t *testing.T) {
	id := uuid.MustParse("12345678-1234-1234-1234-123456789abc")
	assert.Equal(t, "content/12345678-1234-1234-1234-123456789abc.md", NewFlatGenerator().GenerateKey(id))
	assert.Equal(t, "etc-x/12345678-1234-1234-1234-123456789abc.md", (&FlatGenerator{Prefix: "../../etc x"}).GenerateKey(id))
}

func TestGeneratorsProduceUniqueKeys(t *testing.T) {
	for _, g := range []Generator{NewFlatGenerator(), NewGitLikeGenerator()} {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			key := g.GenerateKey(uuid.New())
			assert.False(t, seen[key])
			seen[key] = true
		}
	}
}
