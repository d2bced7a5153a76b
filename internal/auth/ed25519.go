package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/model"
)

const challengeSize = 32

// Ed25519AuthProvider authenticates the single author holding the private
// key matching publicKey. The author signs the current challenge.
type Ed25519AuthProvider struct {
	publicKey  ed25519.PublicKey
	headerName string
	cookieName string
	userID     model.UserID

	mu        sync.RWMutex
	challenge []byte
}

// NewEd25519AuthProvider creates a new Ed25519-based auth provider
func NewEd25519AuthProvider(publicKeyPEM string, headerName string, userID model.UserID) (*Ed25519AuthProvider, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key is not an Ed25519 public key")
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}

	return &Ed25519AuthProvider{
		publicKey:  publicKey,
		headerName: headerName,
		cookieName: config.CookieAuthToken,
		userID:     userID,
		challenge:  challenge,
	}, nil
}

func newChallenge() ([]byte, error) {
	challenge := make([]byte, challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	return challenge, nil
}

// Middleware validates Ed25519-signed challenges from the header, falling
// back to the cookie set by the verify handler.
func (p *Ed25519AuthProvider) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := zerolog.Ctx(r.Context())

			var signature []byte
			var err error

			authHeader := r.Header.Get(p.headerName)
			if authHeader != "" {
				signature, err = base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
				if err != nil {
					l.Debug().Err(err).Msg("Failed to decode signature from header")
				}
			} else if cookie, err := r.Cookie(p.cookieName); err == nil && cookie.Value != "" {
				signature, err = base64.StdEncoding.DecodeString(cookie.Value)
				if err != nil {
					l.Debug().Err(err).Msg("Failed to decode signature from cookie")
				}
			}

			if len(signature) > 0 && p.Verify(signature) {
				next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), p.userID)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p *Ed25519AuthProvider) UserID(r *http.Request) (model.UserID, error) {
	return userFromRequest(r)
}

// Verify reports whether signature signs the current challenge.
func (p *Ed25519AuthProvider) Verify(signature []byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ed25519.Verify(p.publicKey, p.challenge, signature)
}

// Challenge returns a copy of the challenge that needs to be signed
func (p *Ed25519AuthProvider) Challenge() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.challenge...)
}

// RefreshChallenge replaces the challenge, invalidating every signature
// issued so far.
func (p *Ed25519AuthProvider) RefreshChallenge() error {
	challenge, err := newChallenge()
	if err != nil {
		authLogger.Error().Err(err).Msg("Failed to generate challenge")
		return err
	}
	p.mu.Lock()
	p.challenge = challenge
	p.mu.Unlock()
	return nil
}

// LoadPrivateKey parses a PKCS#8 PEM encoded Ed25519 private key.
func LoadPrivateKey(privateKeyPEM []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("not an Ed25519 private key")
	}
	return edKey, nil
}

// SignChallenge signs a base64 challenge and returns the base64 signature
// expected in the authorization header.
func SignChallenge(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(strings.TrimSpace(challengeB64))
	if err != nil {
		return "", fmt.Errorf("invalid base64 challenge: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}
