package store

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/youtube"
)

// MusicStore holds the music document, kept in its own file.
type MusicStore = File[types.Playlist]

// OpenMusic loads the music document from path.
func OpenMusic(path string) (*MusicStore, LoadInfo) {
	return Open(path, DecodePlaylist, DefaultPlaylist)
}

// DefaultPlaylist is the empty music list.
func DefaultPlaylist() types.Playlist {
	return types.Playlist{}
}

// DecodePlaylist parses a persisted music document. Tracks missing a
// placement join the default placement, tracks missing a thumbnail get one
// derived from their URL, and tracks missing an id get a fresh one.
func DecodePlaylist(data []byte) (types.Playlist, []string, error) {
	var tracks types.Playlist
	if err := json.Unmarshal(jsonc.ToJSON(data), &tracks); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if tracks == nil {
		tracks = types.Playlist{}
	}

	var placements, thumbnails, ids bool
	for i := range tracks {
		t := &tracks[i]
		if t.Placement == "" {
			t.Placement = types.DefaultPlacement
			placements = true
		}
		if t.Thumbnail == nil {
			if thumb, ok := youtube.DeriveThumbnail(t.URL); ok {
				t.Thumbnail = &thumb
				thumbnails = true
			}
		}
		ids = ensureID(&t.ID) || ids
	}

	var applied []string
	if placements {
		applied = append(applied, "default_placement")
	}
	if thumbnails {
		applied = append(applied, "derive_thumbnails")
	}
	if ids {
		applied = append(applied, "assign_ids")
	}
	return tracks, applied, nil
}
