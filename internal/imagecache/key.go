package imagecache

import "strconv"

// CacheKey derives the cache key for a source URI: a rolling hash with
// 32-bit signed overflow, rendered as the absolute value in base36.
// Distinct URIs that collide share a slot; the collision rate is accepted
// rather than handled.
func CacheKey(uri string) string {
	var h int32
	for _, c := range uri {
		h = h*31 + int32(c)
	}

	// Widen before negating so the minimum int32 doesn't overflow.
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
