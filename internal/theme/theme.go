// Package theme picks the syntax highlighting theme for a request.
package theme

import (
	"net/http"
	"slices"

	"github.com/alecthomas/chroma/v2/styles"
)

const (
	CookieSyntaxTheme = "syntax-theme"
	QuerySyntaxTheme  = "theme"
)

// Names lists the registered chroma styles in order.
func Names() []string {
	names := styles.Names()
	slices.Sort(names)
	return names
}

func Known(name string) bool {
	_, ok := styles.Registry[name]
	return ok
}

// SyntaxThemeFromRequest returns the theme asked for by the query parameter,
// then the cookie. Unknown names yield fallback.
func SyntaxThemeFromRequest(r *http.Request, fallback string) string {
	if name := r.URL.Query().Get(QuerySyntaxTheme); name != "" && Known(name) {
		return name
	}
	if cookie, err := r.Cookie(CookieSyntaxTheme); err == nil && Known(cookie.Value) {
		return cookie.Value
	}
	return fallback
}
