// Package api exposes the ledger over HTTP. The same handler set is mounted
// under every configured prefix.
package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/auth"
	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/diff"
	"github.com/debemdeboas/archive-ledger/internal/ledger"
	"github.com/debemdeboas/archive-ledger/internal/render"
	"github.com/debemdeboas/archive-ledger/internal/routes"
)

var apiLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	apiLogger = l
}

type Handler struct {
	ledger   *ledger.Service
	diff     *diff.Engine
	renderer *render.Renderer
	auth     auth.Provider
}

func New(l *ledger.Service, d *diff.Engine, r *render.Renderer, p auth.Provider) *Handler {
	return &Handler{ledger: l, diff: d, renderer: r, auth: p}
}

// Mount registers every API route under prefix. Writes require a user.
func (h *Handler) Mount(mux *http.ServeMux, prefix string) {
	if prefix == "/" {
		prefix = ""
	}

	write := auth.RequireUser(h.auth)
	handle := func(method, pattern string, fn http.HandlerFunc) {
		mux.Handle(method+" "+prefix+pattern, fn)
	}
	handleWrite := func(method, pattern string, fn http.HandlerFunc) {
		mux.Handle(method+" "+prefix+pattern, write(fn))
	}

	handleWrite(http.MethodPost, routes.Posts, h.createPost)
	handle(http.MethodGet, routes.Posts, h.listPosts)
	handle(http.MethodGet, routes.Post, h.getPost)

	handleWrite(http.MethodPost, routes.PostVersions, h.createVersion)
	handle(http.MethodGet, routes.PostVersions, h.listVersions)
	handle(http.MethodGet, routes.CurrentVersion, h.currentVersion)
	handleWrite(http.MethodPost, routes.Rollback, h.rollback)
	handle(http.MethodGet, routes.Compare, h.compare)

	handle(http.MethodGet, routes.Version, h.getVersion)
	handle(http.MethodGet, routes.VersionPreview, h.previewVersion)
	handle(http.MethodGet, routes.VersionSource, h.sourceVersion)
	handle(http.MethodGet, routes.SyntaxThemes, h.listSyntaxThemes)
	handle(http.MethodGet, routes.SyntaxCSS, h.syntaxCSS)

	apiLogger.Debug().Str("prefix", prefix).Msg("Mounted API")
}

// Wrap applies the middleware chain shared by every route: request logger,
// identity, secure headers.
func Wrap(l zerolog.Logger, p auth.Provider, next http.Handler) http.Handler {
	return withLogger(l, p.Middleware()(secureHeaders(next)))
}

func withLogger(l zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := l.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		next.ServeHTTP(w, r.WithContext(rl.WithContext(r.Context())))
	})
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set(config.HCacheControl, "no-cache")
		next.ServeHTTP(w, r)
	})
}
