package api

import (
	"encoding/json"
	"net/http"

	"github.com/debemdeboas/archive-ledger/internal/auth"
	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/diff"
	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/ledger"
	"github.com/debemdeboas/archive-ledger/internal/markdown"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/render"
	"github.com/debemdeboas/archive-ledger/internal/routes"
	"github.com/debemdeboas/archive-ledger/internal/theme"
)

const maxBodyBytes = 4 << 20

const (
	FormatJSON    = "json"
	FormatUnified = "unified"
	FormatHTML    = "html"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return exception.NewValidationError("MALFORMED_REQUEST", "request body: %v", err)
	}
	return nil
}

func postID(r *http.Request) model.PostID {
	return model.PostID(r.PathValue(routes.PathPostID))
}

func versionID(r *http.Request) model.VersionID {
	return model.VersionID(r.PathValue(routes.PathVersionID))
}

type createPostRequest struct {
	Slug   string           `json:"slug"`
	Status model.PostStatus `json:"status"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	owner, _ := auth.UserIDFromContext(r.Context())
	post, err := h.ledger.CreatePost(r.Context(), ledger.NewPost{Slug: req.Slug, Status: req.Status, Owner: owner})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.ledger.ListPosts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if posts == nil {
		posts = []*model.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.ledger.GetPost(r.Context(), postID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// createVersionRequest carries either a block document or Markdown, never both.
type createVersionRequest struct {
	Content       json.RawMessage `json:"content,omitempty"`
	Markdown      *string         `json:"markdown,omitempty"`
	Title         string          `json:"title"`
	Excerpt       string          `json:"excerpt"`
	Tags          []string        `json:"tags"`
	ChangeSummary string          `json:"change_summary"`
}

func (req *createVersionRequest) document() (document.Document, model.Metadata, error) {
	meta := model.Metadata{Title: req.Title, Excerpt: req.Excerpt, Tags: req.Tags}

	switch {
	case req.Markdown != nil && len(req.Content) > 0:
		return nil, meta, exception.NewValidationError("AMBIGUOUS_CONTENT", "send either content or markdown, not both")
	case req.Markdown != nil:
		c, err := markdown.Compose(*req.Markdown)
		if err != nil {
			return nil, meta, err
		}
		if meta.Title == "" {
			meta.Title = c.Title
		}
		if meta.Excerpt == "" {
			meta.Excerpt = c.Excerpt
		}
		if meta.Tags == nil {
			meta.Tags = c.Tags
		}
		return c.Body, meta, nil
	case len(req.Content) > 0:
		doc, err := document.Parse(req.Content)
		return doc, meta, err
	default:
		return document.Document{}, meta, nil
	}
}

func (h *Handler) createVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	doc, meta, err := req.document()
	if err != nil {
		writeError(w, r, err)
		return
	}

	author, _ := auth.UserIDFromContext(r.Context())
	v, err := h.ledger.CreateVersion(r.Context(), postID(r), doc, meta, model.ChangeNote{
		Summary:   req.ChangeSummary,
		CreatedBy: author,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	post, err := h.ledger.GetPost(r.Context(), postID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	versions, err := h.ledger.ListVersions(r.Context(), post.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summaries := make([]model.Summary, 0, len(versions))
	for _, v := range versions {
		summaries = append(summaries, v.Summary(post.CurrentVersionID))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) currentVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.ledger.GetCurrentVersion(r.Context(), postID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.ledger.GetVersion(r.Context(), versionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) previewVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.ledger.GetVersion(r.Context(), versionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusOK)
	w.Write(h.renderer.Version(v, theme.SyntaxThemeFromRequest(r, "")))
}

func (h *Handler) sourceVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.ledger.GetVersion(r.Context(), versionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == FormatHTML {
		w.Header().Set(config.HCType, config.CTypeHTML)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(h.renderer.Source(v, theme.SyntaxThemeFromRequest(r, ""))))
		return
	}
	w.Header().Set(config.HCType, config.CTypeText)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(render.VersionMarkdown(v)))
}

type rollbackRequest struct {
	VersionID model.VersionID `json:"version_id"`
}

func (h *Handler) rollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.VersionID == "" {
		writeError(w, r, exception.NewValidationError("MISSING_VERSION", "version_id is required"))
		return
	}

	author, _ := auth.UserIDFromContext(r.Context())
	v, err := h.ledger.Rollback(r.Context(), postID(r), req.VersionID, author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type comparisonResponse struct {
	*diff.Comparison
	Stats   diff.Stats `json:"stats"`
	Unified string     `json:"unified"`
}

func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, b := model.VersionID(q.Get("a")), model.VersionID(q.Get("b"))
	if a == "" || b == "" {
		writeError(w, r, exception.NewValidationError("MISSING_VERSION", "both a and b are required"))
		return
	}

	c, err := h.diff.Compare(r.Context(), postID(r), a, b)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch q.Get("format") {
	case FormatUnified:
		w.Header().Set(config.HCType, config.CTypeText)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(c.Unified()))
	case FormatHTML:
		w.Header().Set(config.HCType, config.CTypeHTML)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(h.renderer.Comparison(c, theme.SyntaxThemeFromRequest(r, ""))))
	case "", FormatJSON:
		writeJSON(w, http.StatusOK, comparisonResponse{Comparison: c, Stats: c.Stats(), Unified: c.Unified()})
	default:
		writeError(w, r, exception.NewValidationError("UNKNOWN_FORMAT", "unknown format %q", q.Get("format")))
	}
}

func (h *Handler) syntaxCSS(w http.ResponseWriter, r *http.Request) {
	css := render.SyntaxCSS(r.PathValue(routes.PathTheme))
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HCacheControl, "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(css))
}

func (h *Handler) listSyntaxThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, theme.Names())
}
