// Package routes defines HTTP route patterns for the ledger API.
package routes

// Mounted under every configured API prefix.
const (
	Posts          = "/posts"
	Post           = "/posts/{postID}"
	PostVersions   = "/posts/{postID}/versions"
	CurrentVersion = "/posts/{postID}/versions/current"
	Rollback       = "/posts/{postID}/rollback"
	Compare        = "/posts/{postID}/compare"
	Version        = "/versions/{versionID}"
	VersionPreview = "/versions/{versionID}/preview"
	VersionSource  = "/versions/{versionID}/source"
	SyntaxThemes   = "/syntax-themes"
	SyntaxCSS      = "/syntax-theme/{theme}"
)

// Served once at the root.
const (
	Events        = "/events"
	Health        = "/healthz"
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
)

const (
	PathPostID    = "postID"
	PathVersionID = "versionID"
	PathTheme     = "theme"
)
