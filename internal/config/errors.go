package config

const (
	ErrInvalidValueFmt       = "%s: unsupported value %q (want one of %s)"
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrUnauthorized           = "Unauthorized"
	ErrRefreshChallengeFmt    = "Failed to refresh challenge"
)
