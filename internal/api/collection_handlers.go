package api

import (
	"errors"
	"mime"
	"net/http"

	"github.com/hyperengineering/keepsake/internal/collection"
	"github.com/hyperengineering/keepsake/internal/types"
)

const (
	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to temporary files.
	multipartMemory = 8 << 20
	// multipartOverhead allows for form fields and boundaries on top of the
	// file size limit.
	multipartOverhead = 1 << 20
	// defaultMaxUpload applies when no upload limit is configured.
	defaultMaxUpload = 16 << 20
)

type textRequest struct {
	Text string `json:"text"`
}

type statusRequest struct {
	Status types.IdeaStatus `json:"status"`
}

type memoryRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type trackRequest struct {
	Song      string `json:"song"`
	Artist    string `json:"artist"`
	URL       string `json:"url"`
	Placement string `json:"placement"`
}

func (t trackRequest) input() collection.TrackInput {
	return collection.TrackInput{Song: t.Song, Artist: t.Artist, URL: t.URL, Placement: t.Placement}
}

type musicResponse struct {
	Tracks types.Playlist     `json:"tracks"`
	Groups []types.MusicGroup `json:"groups"`
}

// orEmpty keeps empty lists encoded as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// --- Ideas ---

// ListIdeas handles GET /api/v1/ideas
func (h *Handler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.svc.Ideas.List()))
}

// AddIdea handles POST /api/v1/ideas
func (h *Handler) AddIdea(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Ideas.Add(MustPrincipal(r.Context()), req.Text)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// EditIdea handles PUT /api/v1/ideas/{index}
func (h *Handler) EditIdea(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Ideas.Edit(MustPrincipal(r.Context()), ref, req.Text)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// SetIdeaStatus handles POST /api/v1/ideas/{index}/status
func (h *Handler) SetIdeaStatus(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Ideas.SetStatus(MustPrincipal(r.Context()), ref, req.Status)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// DeleteIdea handles DELETE /api/v1/ideas/{index}
func (h *Handler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	res, err := h.svc.Ideas.Delete(MustPrincipal(r.Context()), ref)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// --- Notes ---

// ListNotes handles GET /api/v1/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.svc.Notes.List()))
}

// AddNote handles POST /api/v1/notes
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Notes.Add(MustPrincipal(r.Context()), req.Text)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// EditNote handles PUT /api/v1/notes/{index}
func (h *Handler) EditNote(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Notes.Edit(MustPrincipal(r.Context()), ref, req.Text)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// DeleteNote handles DELETE /api/v1/notes/{index}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	res, err := h.svc.Notes.Delete(MustPrincipal(r.Context()), ref)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// --- Memories ---

// ListMemories handles GET /api/v1/memories
func (h *Handler) ListMemories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.svc.Memories.List()))
}

// AddMemory handles POST /api/v1/memories. A multipart body may carry a
// "photo" file alongside the text and category fields; a JSON body cannot.
func (h *Handler) AddMemory(w http.ResponseWriter, r *http.Request) {
	var (
		in    collection.MemoryInput
		photo *collection.Attachment
	)
	if isMultipart(r) {
		att, cleanup, err := h.readMultipart(w, r, "photo")
		if err != nil {
			writeMultipartError(w, r, err)
			return
		}
		defer cleanup()
		photo = att
		in.Text = r.FormValue("text")
		in.Category = r.FormValue("category")
	} else {
		var req memoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in = collection.MemoryInput{Text: req.Text, Category: req.Category}
	}

	res, err := h.svc.Memories.Add(MustPrincipal(r.Context()), in, photo)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// EditMemory handles PUT /api/v1/memories/{index}
func (h *Handler) EditMemory(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	var req memoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Memories.Edit(MustPrincipal(r.Context()), ref, collection.MemoryInput{Text: req.Text, Category: req.Category})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// DeleteMemory handles DELETE /api/v1/memories/{index}
func (h *Handler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	res, err := h.svc.Memories.Delete(MustPrincipal(r.Context()), ref)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// --- Gallery ---

// ListGallery handles GET /api/v1/gallery
func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.svc.Gallery.List()))
}

// GetImage handles GET /api/v1/gallery/{index}
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	entry, err := h.svc.Gallery.Get(ref.Index)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// UploadImage handles POST /api/v1/gallery with a multipart "image" file.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		WriteProblem(w, r, http.StatusBadRequest, "Expected a multipart/form-data body")
		return
	}
	image, cleanup, err := h.readMultipart(w, r, "image")
	if err != nil {
		writeMultipartError(w, r, err)
		return
	}
	defer cleanup()

	res, err := h.svc.Gallery.Upload(MustPrincipal(r.Context()), image)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// SetImageNote handles PUT /api/v1/gallery/{index}/note
func (h *Handler) SetImageNote(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Gallery.SetNote(MustPrincipal(r.Context()), ref, req.Note)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// DeleteImage handles DELETE /api/v1/gallery/{index}
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	res, err := h.svc.Gallery.Delete(MustPrincipal(r.Context()), ref)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// --- Music ---

// ListMusic handles GET /api/v1/music, returning the flat list and the
// placement groups that index into it.
func (h *Handler) ListMusic(w http.ResponseWriter, r *http.Request) {
	tracks := h.svc.Music.List()
	writeJSON(w, http.StatusOK, musicResponse{
		Tracks: orEmpty(tracks),
		Groups: collection.GroupTracks(tracks),
	})
}

// AddTrack handles POST /api/v1/music
func (h *Handler) AddTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Music.Add(MustPrincipal(r.Context()), req.input())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// EditTrack handles PUT /api/v1/music/{index}
func (h *Handler) EditTrack(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	var req trackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Music.Edit(MustPrincipal(r.Context()), ref, req.input())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// DeleteTrack handles DELETE /api/v1/music/{index}
func (h *Handler) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromRequest(r)
	if err != nil {
		MapError(w, r, err)
		return
	}
	res, err := h.svc.Music.Delete(MustPrincipal(r.Context()), ref)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeMutation(w, r, res, res.Entry.ID)
}

// --- Uploads ---

func isMultipart(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "multipart/form-data"
}

// readMultipart parses a multipart body bounded by the upload limit and
// returns the named file, or nil when none was sent. cleanup releases the
// file and any temporary parts.
func (h *Handler) readMultipart(w http.ResponseWriter, r *http.Request, field string) (*collection.Attachment, func(), error) {
	limit := h.maxUpload
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, err
	}
	removeParts := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, removeParts, nil
	}
	if err != nil {
		removeParts()
		return nil, nil, err
	}
	return &collection.Attachment{Filename: hdr.Filename, Reader: f}, func() {
		f.Close()
		removeParts()
	}, nil
}

func writeMultipartError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		MapError(w, r, err)
		return
	}
	WriteProblem(w, r, http.StatusBadRequest, "Invalid multipart body")
}
