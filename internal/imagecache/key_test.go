package imagecache

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheKeyIsDeterministic(t *testing.T) {
	uri := "https://cdn.example.com/photos/12345_large.jpg"
	require.Equal(t, CacheKey(uri), CacheKey(uri))
}

func TestCacheKeyKnownValues(t *testing.T) {
	// 'a' is 97; 97 in base36 is "2p".
	require.Equal(t, "2p", CacheKey("a"))
	// 'a'*31 + 'b' = 3105; 3105 in base36 is "2e9".
	require.Equal(t, "2e9", CacheKey("ab"))
}

func TestCacheKeyIsBase36(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-z]+$`)
	uris := []string{
		"",
		"a",
		"https://cdn.example.com/x.png",
		"file:///local/storage/images/profile_thumbnail.webp",
		"https://example.com/very/long/path/with/üñíçødé/and spaces.jpg",
	}
	for _, uri := range uris {
		key := CacheKey(uri)
		require.NotEmpty(t, key, "uri %q", uri)
		require.True(t, pattern.MatchString(key), "uri %q produced key %q", uri, key)
	}
}

func TestCacheKeyDistinguishesTypicalURIs(t *testing.T) {
	// Collisions are accepted in general, but everyday sibling URIs
	// should land in different slots.
	a := CacheKey("https://cdn.example.com/photos/1.jpg")
	b := CacheKey("https://cdn.example.com/photos/2.jpg")
	require.NotEqual(t, a, b)
}
