package imagecache

import "strings"

// Size buckets for entries inserted without an explicit size. The source
// URI usually carries a variant hint in its filename.
const (
	sizeThumbnail = 50 * 1024
	sizeMedium    = 200 * 1024
	sizeLarge     = 800 * 1024
	sizeDefault   = 300 * 1024
)

// EstimateSize maps a URI to a size bucket by filename hint.
func EstimateSize(uri string) int64 {
	lower := strings.ToLower(uri)
	switch {
	case strings.Contains(lower, "thumbnail"):
		return sizeThumbnail
	case strings.Contains(lower, "medium"):
		return sizeMedium
	case strings.Contains(lower, "large"):
		return sizeLarge
	default:
		return sizeDefault
	}
}
