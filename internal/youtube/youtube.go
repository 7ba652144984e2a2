// Package youtube validates YouTube links and rewrites them into the forms
// the music page embeds.
package youtube

import (
	"fmt"
	"regexp"
	"strings"
)

// linkPattern accepts youtube.com and youtu.be hosts with an optional
// scheme and an optional www. prefix.
var linkPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.?be)/.+$`)

const thumbnailFormat = "https://img.youtube.com/vi/%s/hqdefault.jpg"

// idMarkers precede the video id in the supported URL forms.
var idMarkers = []string{"watch?v=", "embed/", "youtu.be/"}

// IsValidLink reports whether url looks like a YouTube link.
func IsValidLink(url string) bool {
	return linkPattern.MatchString(strings.TrimSpace(url))
}

// ToEmbeddable rewrites watch and short links into embed links. Already
// embeddable and other valid links are returned unchanged. The second result
// is false when url is not a YouTube link.
func ToEmbeddable(url string) (string, bool) {
	url = strings.TrimSpace(url)
	if !IsValidLink(url) {
		return "", false
	}
	switch {
	case strings.Contains(url, "watch?v="):
		return strings.Replace(url, "watch?v=", "embed/", 1), true
	case strings.Contains(url, "youtu.be/"):
		return strings.Replace(url, "youtu.be/", "youtube.com/embed/", 1), true
	default:
		return url, true
	}
}

// VideoID extracts the video id from a watch, embed or short link. The id
// ends at the first '&' or '?'.
func VideoID(url string) (string, bool) {
	for _, marker := range idMarkers {
		idx := strings.Index(url, marker)
		if idx < 0 {
			continue
		}
		id := url[idx+len(marker):]
		if end := strings.IndexAny(id, "&?"); end >= 0 {
			id = id[:end]
		}
		if id == "" {
			return "", false
		}
		return id, true
	}
	return "", false
}

// DeriveThumbnail returns the high quality thumbnail URL for the video that
// url points at.
func DeriveThumbnail(url string) (string, bool) {
	id, ok := VideoID(strings.TrimSpace(url))
	if !ok {
		return "", false
	}
	return fmt.Sprintf(thumbnailFormat, id), true
}
