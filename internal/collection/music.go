package collection

import (
	"slices"
	"strings"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/validation"
	"github.com/hyperengineering/keepsake/internal/youtube"
)

// TrackInput carries the editable fields of a track. URL may be any
// YouTube link form; it is stored in embeddable form.
type TrackInput struct {
	Song      string
	Artist    string
	URL       string
	Placement string
}

// Music is the shared playlist, kept in its own document. Entries are
// addressed by their position in the flat list (the global index).
type Music struct {
	c *core
}

// List returns the flat playlist, most recent first.
func (s *Music) List() types.Playlist {
	var out types.Playlist
	s.c.music.View(func(p *types.Playlist) {
		out = slices.Clone(*p)
	})
	return out
}

// Grouped returns the playlist grouped by placement, groups ordered by first
// appearance. Every track carries its global index.
func (s *Music) Grouped() []types.MusicGroup {
	return GroupTracks(s.List())
}

// GroupTracks groups tracks by placement in order of first appearance.
func GroupTracks(tracks types.Playlist) []types.MusicGroup {
	groups := []types.MusicGroup{}
	pos := make(map[string]int)
	for i, t := range tracks {
		placement := t.Placement
		if placement == "" {
			placement = types.DefaultPlacement
		}
		g, ok := pos[placement]
		if !ok {
			g = len(groups)
			pos[placement] = g
			groups = append(groups, types.MusicGroup{Placement: placement})
		}
		groups[g].Tracks = append(groups[g].Tracks, types.IndexedTrack{Track: t, GlobalIndex: i})
	}
	return groups
}

// normalizeTrack validates in and builds the stored form of the track.
func normalizeTrack(in TrackInput) (types.Track, error) {
	t := types.Track{
		Song:      strings.TrimSpace(in.Song),
		Artist:    strings.TrimSpace(in.Artist),
		Placement: strings.TrimSpace(in.Placement),
	}
	if t.Placement == "" {
		t.Placement = types.DefaultPlacement
	}

	var v validation.Collector
	validation.ValidateText(&v, "song", t.Song, true)
	validation.ValidateText(&v, "artist", t.Artist, false)
	validation.ValidateText(&v, "placement", t.Placement, false)

	embed, ok := youtube.ToEmbeddable(strings.TrimSpace(in.URL))
	if !ok {
		v.Add(&validation.ValidationError{Field: "url", Message: "must be a YouTube link"})
	}
	if err := v.Err(); err != nil {
		return types.Track{}, err
	}

	t.URL = embed
	if thumb, ok := youtube.DeriveThumbnail(embed); ok {
		t.Thumbnail = &thumb
	}
	return t, nil
}

func sameTrack(a, b types.Track) bool {
	return a.Song == b.Song && a.Artist == b.Artist && a.URL == b.URL && a.Placement == b.Placement
}

// Add inserts a track at the head of the playlist.
func (s *Music) Add(p auth.Principal, in TrackInput) (Result[types.Track], error) {
	const r, op = auth.ResourceMusic, auth.OpAdd
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Track]{}, err
	}

	track, err := normalizeTrack(in)
	if err != nil {
		return Result[types.Track]{}, s.c.reject(r, op, err)
	}
	track.ID = store.NewID()

	saveErr, err := commit(s.c, s.c.music, DocumentMusic, r, op, func(pl *types.Playlist) error {
		*pl = slices.Insert(*pl, 0, track)
		return nil
	})
	if err != nil {
		return Result[types.Track]{}, err
	}

	logMutation(r, op, p, 0, track.ID)
	return Result[types.Track]{Index: 0, Entry: track, SaveErr: saveErr}, nil
}

// Edit replaces the track at ref. An edit that changes no field is rejected.
func (s *Music) Edit(p auth.Principal, ref Ref, in TrackInput) (Result[types.Track], error) {
	const r, op = auth.ResourceMusic, auth.OpEdit
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Track]{}, err
	}

	var edited types.Track
	saveErr, err := commit(s.c, s.c.music, DocumentMusic, r, op, func(pl *types.Playlist) error {
		tracks := *pl
		if err := locate(r, len(tracks), ref, func(i int) string { return tracks[i].ID }); err != nil {
			return err
		}

		next, err := normalizeTrack(in)
		if err != nil {
			return err
		}
		cur := &tracks[ref.Index]
		if sameTrack(*cur, next) {
			return validation.Single("track", "is unchanged")
		}

		next.ID = cur.ID
		*cur = next
		edited = next
		return nil
	})
	if err != nil {
		return Result[types.Track]{}, err
	}

	logMutation(r, op, p, ref.Index, edited.ID)
	return Result[types.Track]{Index: ref.Index, Entry: edited, SaveErr: saveErr}, nil
}

// Delete removes the track at ref.
func (s *Music) Delete(p auth.Principal, ref Ref) (Result[types.Track], error) {
	const r, op = auth.ResourceMusic, auth.OpDelete
	if err := s.c.authorize(p, r, op); err != nil {
		return Result[types.Track]{}, err
	}

	var removed types.Track
	saveErr, err := commit(s.c, s.c.music, DocumentMusic, r, op, func(pl *types.Playlist) error {
		tracks := *pl
		if err := locate(r, len(tracks), ref, func(i int) string { return tracks[i].ID }); err != nil {
			return err
		}
		removed = tracks[ref.Index]
		*pl = slices.Delete(tracks, ref.Index, ref.Index+1)
		return nil
	})
	if err != nil {
		return Result[types.Track]{}, err
	}

	logMutation(r, op, p, ref.Index, removed.ID)
	return Result[types.Track]{Index: ref.Index, Entry: removed, SaveErr: saveErr}, nil
}
