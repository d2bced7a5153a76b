package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/routes"
)

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

func writeChallenge(w http.ResponseWriter, challenge []byte) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	json.NewEncoder(w).Encode(challengeResponse{Challenge: base64.StdEncoding.EncodeToString(challenge)})
}

// Ed25519ChallengeHandler serves the current challenge on GET and rotates it on POST.
func Ed25519ChallengeHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())
		switch r.Method {
		case http.MethodGet:
			writeChallenge(w, provider.Challenge())

		case http.MethodPost:
			if err := provider.RefreshChallenge(); err != nil {
				l.Error().Err(err).Msg("Failed to refresh challenge")
				http.Error(w, config.ErrRefreshChallengeFmt, http.StatusInternalServerError)
				return
			}
			writeChallenge(w, provider.Challenge())

		default:
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		}
	}
}

// Ed25519VerifyHandler checks the signature in the header and stores it in
// a cookie for later requests.
func Ed25519VerifyHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		authHeader := r.Header.Get(provider.headerName)
		if authHeader == "" {
			http.Error(w, config.ErrAuthHeaderRequired, http.StatusUnauthorized)
			return
		}

		signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
		if err != nil {
			authLogger.Warn().Err(err).Msg("Failed to decode signature")
			http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
			return
		}

		if !provider.Verify(signature) {
			authLogger.Warn().Msg("Signature verification failed")
			http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     provider.cookieName,
			Value:    base64.StdEncoding.EncodeToString(signature),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
			MaxAge:   3600 * 24,
		})

		w.WriteHeader(http.StatusOK)
	}
}

// RegisterEd25519AuthRoutes registers the challenge and verify endpoints.
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider) {
	mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(provider))
}
