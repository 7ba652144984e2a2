package types

// Role names used by the default user table. Deployments may rename them
// through configuration; code compares roles through auth.Policy.
const (
	RolePrimary   = "admin"
	RoleSecondary = "guest"
)

// DefaultPlacement is the music placement used when none is given.
const DefaultPlacement = "General"

// DefaultCategory is the memory category used when none is given.
const DefaultCategory = "General"

// IdeaStatus is the lifecycle state of an idea.
type IdeaStatus string

const (
	StatusPlanned   IdeaStatus = "Planned"
	StatusCompleted IdeaStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s IdeaStatus) Valid() bool {
	return s == StatusPlanned || s == StatusCompleted
}

// User is an entry of the static credential table.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Idea is something the couple wants to do together.
type Idea struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Status    IdeaStatus `json:"status"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// Memory is a dated recollection with an optional photo.
type Memory struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Photo     string `json:"photo"`
}

// Note is a short free-form reminder.
type Note struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// GalleryEntry describes an uploaded image stored in the gallery directory.
type GalleryEntry struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
	Note       string `json:"note"`
}

// Document is the whole primary application state, persisted as one JSON file.
type Document struct {
	SchemaVersion int            `json:"schema_version"`
	Users         []User         `json:"users"`
	Ideas         []Idea         `json:"ideas"`
	Memories      []Memory       `json:"memories"`
	Notes         []Note         `json:"notes"`
	Gallery       []GalleryEntry `json:"gallery"`
}

// Track is a song in the shared music list. URL is always in embeddable form.
type Track struct {
	ID        string  `json:"id"`
	Song      string  `json:"song"`
	Artist    string  `json:"artist"`
	URL       string  `json:"url"`
	Thumbnail *string `json:"thumbnail"`
	Placement string  `json:"placement"`
}

// Playlist is the music document: a flat list of tracks.
type Playlist []Track

// IndexedTrack is a track annotated with its position in the flat playlist.
type IndexedTrack struct {
	Track
	GlobalIndex int `json:"global_index"`
}

// MusicGroup is the set of tracks sharing a placement.
type MusicGroup struct {
	Placement string         `json:"placement"`
	Tracks    []IndexedTrack `json:"tracks"`
}

// GalleryPreview is a gallery thumbnail reference shown on the dashboard.
type GalleryPreview struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	Name              string           `json:"name"`
	Bio               string           `json:"bio"`
	RelationshipStart string           `json:"relationship_start"`
	DaysTogether      int              `json:"days_together"`
	DaysText          string           `json:"days_text"`
	NextAnniversary   string           `json:"next_anniversary"`
	Gallery           []GalleryPreview `json:"gallery"`
}

// Counts summarises collection sizes.
type Counts struct {
	Ideas    int `json:"ideas"`
	Memories int `json:"memories"`
	Notes    int `json:"notes"`
	Gallery  int `json:"gallery"`
	Music    int `json:"music"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Counts  Counts `json:"counts"`
}

// MutationResponse is returned by every successful add/edit/delete/toggle.
// Warnings carry non-fatal failures: an unsaved document or an attachment
// that could not be removed.
type MutationResponse struct {
	Index    int      `json:"index"`
	ID       string   `json:"id,omitempty"`
	Entry    any      `json:"entry,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
