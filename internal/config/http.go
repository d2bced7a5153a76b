package config

const (
	HCType          = "Content-Type"
	HCacheControl   = "Cache-Control"
	HAcceptLanguage = "Accept-Language"

	CTypeCSS  = "text/css"
	CTypeHTML = "text/html; charset=utf-8"
	CTypeJSON = "application/json"
	CTypeText = "text/plain; charset=utf-8"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieAuthToken = "auth_token"
)
