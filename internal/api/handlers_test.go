package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/collection"
	"github.com/hyperengineering/keepsake/internal/config"
	"github.com/hyperengineering/keepsake/internal/metrics"
	"github.com/hyperengineering/keepsake/internal/session"
	"github.com/hyperengineering/keepsake/internal/store"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/uploads"
)

const testCookie = "keepsake_session"

type testEnv struct {
	router http.Handler
	svc    *collection.Service
}

// newTestEnv wires the full stack over a temp directory with the default
// document (BUNBUN as admin, HONEYBEE as guest).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Uploads: config.UploadsConfig{
			GalleryDir: filepath.Join(dir, "uploads"),
			PhotosDir:  filepath.Join(dir, "memory_photos"),
			MaxBytes:   1 << 20,
		},
		Session: config.SessionConfig{
			CookieName: testCookie,
			TTL:        config.Duration(time.Hour),
		},
		Auth: config.AuthConfig{
			PrimaryRole:     types.RolePrimary,
			SecondaryRole:   types.RoleSecondary,
			LoginsPerMinute: 1000,
			LoginBurst:      1000,
		},
		Relationship: config.RelationshipConfig{Start: "2025-09-13", Bio: "our place"},
	}

	doc, _ := store.OpenDocument(filepath.Join(dir, "db.json"))
	music, _ := store.OpenMusic(filepath.Join(dir, "music.json"))
	photos, err := uploads.NewDir(cfg.Uploads.PhotosDir, cfg.Uploads.MaxBytes)
	if err != nil {
		t.Fatalf("NewDir(photos) error = %v", err)
	}
	images, err := uploads.NewDir(cfg.Uploads.GalleryDir, cfg.Uploads.MaxBytes)
	if err != nil {
		t.Fatalf("NewDir(images) error = %v", err)
	}
	sessions, err := session.NewSQLiteStore(filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	m := metrics.New()
	svc := collection.New(collection.Config{
		Document: doc,
		Music:    music,
		Policy:   auth.DefaultPolicy(types.RolePrimary, types.RoleSecondary),
		Photos:   photos,
		Images:   images,
		Recorder: m,
	})
	gate := auth.NewGate(svc.Users, sessions, time.Hour)

	h, err := NewHandler(svc, gate, m, cfg, "1.2.3")
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return &testEnv{router: NewRouter(h), svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path string, v any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, body, "application/json", cookie)
}

func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := e.doJSON(t, http.MethodPost, "/api/v1/login", loginRequest{Username: username, Password: password}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login(%s) status = %d, body = %s", username, w.Code, w.Body.String())
	}
	c := sessionCookie(w)
	if c == nil || c.Value == "" {
		t.Fatalf("login(%s) set no session cookie", username)
	}
	return c
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return v
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// --- Health and sessions ---

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil, "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	resp := decodeBody[types.HealthResponse](t, w)
	if resp.Status != "healthy" || resp.Version != "1.2.3" {
		t.Errorf("health = %+v", resp)
	}
	if resp.Counts.Ideas != 2 || resp.Counts.Notes != 2 || resp.Counts.Music != 0 {
		t.Errorf("counts = %+v", resp.Counts)
	}
}

func TestProtectedRoute_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/ideas", "/api/v1/dashboard", "/api/v1/me", "/uploads/x.jpg"} {
		t.Run(path, func(t *testing.T) {
			w := env.do(t, http.MethodGet, path, nil, "", nil)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if loc := w.Header().Get("Location"); loc != LoginPath {
				t.Errorf("Location = %q, want %q", loc, LoginPath)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q, want application/problem+json", ct)
			}
		})
	}
}

func TestLogin_PrimaryRole(t *testing.T) {
	env := newTestEnv(t)

	cookie := env.login(t, "BUNBUN", "09132025")
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	w := env.do(t, http.MethodGet, "/api/v1/me", nil, "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	p := decodeBody[meResponse](t, w)
	if p.Username != "BUNBUN" || p.Role != types.RolePrimary {
		t.Errorf("me = %+v, want BUNBUN/%s", p, types.RolePrimary)
	}
	if !slices.Contains(p.Permissions[auth.ResourceIdeas], auth.OpDelete) {
		t.Errorf("permissions = %v, want ideas delete", p.Permissions)
	}
}

func TestLogin_FormBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/login",
		strings.NewReader("username=HONEYBEE&password=09132025"),
		"application/x-www-form-urlencoded", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if p := decodeBody[auth.Principal](t, w); p.Role != types.RoleSecondary {
		t.Errorf("role = %q, want %q", p.Role, types.RoleSecondary)
	}
}

func TestLogin_InvalidCredentialsClearsPriorSession(t *testing.T) {
	env := newTestEnv(t)
	prior := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPost, "/api/v1/login", loginRequest{Username: "nobody", Password: "x"}, prior)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if c := sessionCookie(w); c == nil || c.MaxAge >= 0 {
		t.Errorf("failed login should expire the session cookie, got %+v", c)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/me", nil, "", prior); w.Code != http.StatusUnauthorized {
		t.Errorf("prior session still valid: status = %d", w.Code)
	}
}

func TestLogin_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/login", strings.NewReader("{"), "application/json", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLogout_EndsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.do(t, http.MethodPost, "/api/v1/logout", nil, "", cookie)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/me", nil, "", cookie); w.Code != http.StatusUnauthorized {
		t.Errorf("session survived logout: status = %d", w.Code)
	}

	// Logging out while anonymous is still fine.
	if w := env.do(t, http.MethodPost, "/api/v1/logout", nil, "", nil); w.Code != http.StatusNoContent {
		t.Errorf("anonymous logout status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "HONEYBEE", "09132025")

	w := env.do(t, http.MethodGet, "/api/v1/dashboard", nil, "", cookie)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	d := decodeBody[types.Dashboard](t, w)
	if d.Name != "HONEYBEE" || d.Bio != "our place" || d.RelationshipStart != "2025-09-13" {
		t.Errorf("dashboard = %+v", d)
	}
	if !strings.HasSuffix(d.DaysText, "together") {
		t.Errorf("DaysText = %q", d.DaysText)
	}
	if d.Gallery == nil || len(d.Gallery) != 0 {
		t.Errorf("Gallery = %v, want empty list", d.Gallery)
	}
}

// --- Collections ---

func TestIdeas_PicnicScenario(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPost, "/api/v1/ideas", textRequest{Text: "  Picnic at the lake  "}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeBody[types.MutationResponse](t, w)
	if resp.Index != 0 || resp.ID == "" || len(resp.Warnings) != 0 {
		t.Errorf("add response = %+v", resp)
	}

	w = env.doJSON(t, http.MethodPost, "/api/v1/ideas/0/status", statusRequest{Status: types.StatusCompleted}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status update = %d, body = %s", w.Code, w.Body.String())
	}

	ideas := decodeBody[[]types.Idea](t, env.do(t, http.MethodGet, "/api/v1/ideas", nil, "", cookie))
	if len(ideas) != 3 {
		t.Fatalf("len(ideas) = %d, want 3", len(ideas))
	}
	if ideas[0].Text != "Picnic at the lake" || ideas[0].Status != types.StatusCompleted {
		t.Errorf("ideas[0] = %+v", ideas[0])
	}
}

func TestIdeas_Validation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPost, "/api/v1/ideas", textRequest{Text: "   "}, cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	p := decodeBody[ProblemWithErrors](t, w)
	if len(p.Errors) != 1 || p.Errors[0].Field != "text" {
		t.Errorf("errors = %+v, want one on text", p.Errors)
	}

	w = env.doJSON(t, http.MethodPost, "/api/v1/ideas/0/status", statusRequest{Status: "Someday"}, cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestIdeas_NotFoundAndConflict(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPut, "/api/v1/ideas/99", textRequest{Text: "x"}, cookie)
	if w.Code != http.StatusNotFound {
		t.Errorf("out of range status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/ideas/abc", nil, "", cookie)
	if w.Code != http.StatusNotFound {
		t.Errorf("non-numeric index status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/ideas/0?id=01ARZ3NDEKTSV4RRFFQ69G5FAV", nil, "", cookie)
	if w.Code != http.StatusConflict {
		t.Errorf("stale id status = %d, want %d", w.Code, http.StatusConflict)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/ideas/0?id=not-an-id", nil, "", cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed id status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	id := env.svc.Ideas.List()[0].ID
	w = env.do(t, http.MethodDelete, "/api/v1/ideas/0?id="+id, nil, "", cookie)
	if w.Code != http.StatusOK {
		t.Errorf("matching id status = %d, body = %s", w.Code, w.Body.String())
	}
	if n := len(env.svc.Ideas.List()); n != 1 {
		t.Errorf("len(ideas) = %d, want 1", n)
	}
}

func TestSecondaryRole_DeleteForbidden(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "HONEYBEE", "09132025")

	for _, path := range []string{"/api/v1/ideas/0", "/api/v1/notes/0", "/api/v1/memories/0"} {
		t.Run(path, func(t *testing.T) {
			w := env.do(t, http.MethodDelete, path, nil, "", cookie)
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
			}
		})
	}

	counts := env.svc.Counts()
	if counts.Ideas != 2 || counts.Notes != 2 || counts.Memories != 2 {
		t.Errorf("entries removed despite 403: %+v", counts)
	}
}

func TestNotes_EditUnchangedRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "HONEYBEE", "09132025")
	current := env.svc.Notes.List()[1].Text

	w := env.doJSON(t, http.MethodPut, "/api/v1/notes/1", textRequest{Text: current}, cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	w = env.doJSON(t, http.MethodPut, "/api/v1/notes/1", textRequest{Text: "Plan next weekend ✨"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := env.svc.Notes.List()[1].Text; got != "Plan next weekend ✨" {
		t.Errorf("note = %q", got)
	}
}

func TestMemories_MultipartWithPhoto(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	body, ct := multipartBody(t, map[string]string{"text": "Sunset walk", "category": "Trips"}, "photo", "sunset.jpg", []byte("jpeg"))
	w := env.do(t, http.MethodPost, "/api/v1/memories", body, ct, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	m := env.svc.Memories.List()[0]
	if m.Text != "Sunset walk" || m.Category != "Trips" || !strings.HasSuffix(m.Photo, "_sunset.jpg") {
		t.Fatalf("memory = %+v", m)
	}

	w = env.do(t, http.MethodGet, "/memory-photos/"+m.Photo, nil, "", cookie)
	if w.Code != http.StatusOK || w.Body.String() != "jpeg" {
		t.Errorf("photo fetch status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestMemories_JSONWithoutPhoto(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPost, "/api/v1/memories", memoryRequest{Text: "Café du Monde"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	m := env.svc.Memories.List()[0]
	if m.Text != "Café du Monde" || m.Category != types.DefaultCategory || m.Photo != "" {
		t.Errorf("memory = %+v", m)
	}
}

func TestGallery_UploadNoteAndDelete(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	body, ct := multipartBody(t, nil, "image", "beach.png", []byte("png-bytes"))
	w := env.do(t, http.MethodPost, "/api/v1/gallery", body, ct, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}

	entry := decodeBody[types.GalleryEntry](t, env.do(t, http.MethodGet, "/api/v1/gallery/0", nil, "", cookie))
	if !strings.HasSuffix(entry.Filename, "_beach.png") {
		t.Fatalf("filename = %q", entry.Filename)
	}

	w = env.do(t, http.MethodGet, "/uploads/"+entry.Filename, nil, "", cookie)
	if w.Code != http.StatusOK || w.Body.String() != "png-bytes" {
		t.Errorf("image fetch status = %d body = %q", w.Code, w.Body.String())
	}

	w = env.doJSON(t, http.MethodPut, "/api/v1/gallery/0/note", noteRequest{Note: "best day"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("note status = %d, body = %s", w.Code, w.Body.String())
	}

	d := decodeBody[types.Dashboard](t, env.do(t, http.MethodGet, "/api/v1/dashboard", nil, "", cookie))
	if len(d.Gallery) != 1 || d.Gallery[0].Filename != entry.Filename {
		t.Errorf("dashboard gallery = %+v", d.Gallery)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/gallery/0", nil, "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, "/uploads/"+entry.Filename, nil, "", cookie); w.Code != http.StatusNotFound {
		t.Errorf("deleted image still served: status = %d", w.Code)
	}
}

func TestGallery_UploadRequiresMultipartImage(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPost, "/api/v1/gallery", map[string]string{"image": "x"}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("json upload status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	body, ct := multipartBody(t, map[string]string{"note": "x"}, "", "", nil)
	w = env.do(t, http.MethodPost, "/api/v1/gallery", body, ct, cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing image status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestGallery_UploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	body, ct := multipartBody(t, nil, "image", "big.png", bytes.Repeat([]byte("x"), (1<<20)+10))
	w := env.do(t, http.MethodPost, "/api/v1/gallery", body, ct, cookie)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
	if n := len(env.svc.Gallery.List()); n != 0 {
		t.Errorf("len(gallery) = %d, want 0", n)
	}
}

func TestUploads_NoDirectoryListing(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.do(t, http.MethodGet, "/uploads/", nil, "", cookie)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMusic_ShortLinkScenario(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPost, "/api/v1/music", trackRequest{Song: "Song", Artist: "Band", URL: "youtu.be/abc123"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := decodeBody[musicResponse](t, env.do(t, http.MethodGet, "/api/v1/music", nil, "", cookie))
	if len(resp.Tracks) != 1 {
		t.Fatalf("len(tracks) = %d, want 1", len(resp.Tracks))
	}
	tr := resp.Tracks[0]
	if tr.URL != "youtube.com/embed/abc123" {
		t.Errorf("URL = %q", tr.URL)
	}
	if tr.Thumbnail == nil || *tr.Thumbnail != "https://img.youtube.com/vi/abc123/hqdefault.jpg" {
		t.Errorf("Thumbnail = %v", tr.Thumbnail)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].Placement != types.DefaultPlacement || resp.Groups[0].Tracks[0].GlobalIndex != 0 {
		t.Errorf("groups = %+v", resp.Groups)
	}
}

func TestMusic_RejectsNonYouTubeLink(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.doJSON(t, http.MethodPost, "/api/v1/music", trackRequest{Song: "Song", URL: "https://vimeo.com/1"}, cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	p := decodeBody[ProblemWithErrors](t, w)
	if len(p.Errors) == 0 || p.Errors[0].Field != "url" {
		t.Errorf("errors = %+v, want url", p.Errors)
	}
}

func TestMusic_EmptyListEncodesArrays(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "BUNBUN", "09132025")

	w := env.do(t, http.MethodGet, "/api/v1/music", nil, "", cookie)
	if got := strings.TrimSpace(w.Body.String()); got != `{"tracks":[],"groups":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "BUNBUN", "09132025")

	w := env.do(t, http.MethodGet, "/metrics", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	for _, want := range []string{"keepsake_logins_total", `route="/api/v1/login"`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
