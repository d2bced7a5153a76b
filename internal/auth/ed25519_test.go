package auth

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/debemdeboas/archive-ledger/internal/auth/authtest"
	"github.com/debemdeboas/archive-ledger/internal/model"
)

const failedToCreateProvider = "Failed to create provider: %v"

func newTestProvider(t *testing.T) *Ed25519AuthProvider {
	t.Helper()
	provider, err := NewEd25519AuthProvider(authtest.PublicKeyPEM, "Authorization", authtest.UserID)
	if err != nil {
		t.Fatalf(failedToCreateProvider, err)
	}
	return provider
}

func sign(t *testing.T, challenge []byte) string {
	t.Helper()
	key, err := LoadPrivateKey([]byte(authtest.PrivateKeyPEM))
	if err != nil {
		t.Fatalf("Failed to load private key: %v", err)
	}
	sig, err := SignChallenge(key, base64.StdEncoding.EncodeToString(challenge))
	if err != nil {
		t.Fatalf("Failed to sign challenge: %v", err)
	}
	return sig
}

func TestNewEd25519AuthProvider(t *testing.T) {
	testCases := []struct {
		name        string
		publicKey   string
		expectError string
	}{
		{
			name:      "Valid public key",
			publicKey: authtest.PublicKeyPEM,
		},
		{
			name:        "Invalid PEM format",
			publicKey:   "invalid-pem-data",
			expectError: "failed to parse PEM block containing the public key",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider, err := NewEd25519AuthProvider(tc.publicKey, "Authorization", authtest.UserID)

			if tc.expectError != "" {
				if err == nil || err.Error() != tc.expectError {
					t.Errorf("Expected error %q, got %v", tc.expectError, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if provider.cookieName != "auth_token" {
				t.Errorf("Expected cookie name 'auth_token', got '%s'", provider.cookieName)
			}
			if len(provider.Challenge()) != challengeSize {
				t.Errorf("Expected challenge length %d, got %d", challengeSize, len(provider.Challenge()))
			}
		})
	}
}

func TestEd25519AuthProvider_Middleware(t *testing.T) {
	provider := newTestProvider(t)
	validSignature := sign(t, provider.Challenge())

	testCases := []struct {
		name         string
		setupRequest func(*http.Request)
		expectUserID bool
	}{
		{
			name: "Valid signature in header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", validSignature)
			},
			expectUserID: true,
		},
		{
			name: "Valid signature in cookie",
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "auth_token", Value: validSignature})
			},
			expectUserID: true,
		},
		{
			name: "Invalid signature in header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "invalid-signature")
			},
		},
		{
			name:         "No signature provided",
			setupRequest: func(r *http.Request) {},
		},
		{
			name: "Invalid header, valid cookie - header takes precedence",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "invalid-header-signature")
				r.AddCookie(&http.Cookie{Name: "auth_token", Value: validSignature})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setupRequest(req)

			recorder := httptest.NewRecorder()
			var captured context.Context
			handler := provider.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = r.Context()
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(recorder, req)

			userID, ok := UserIDFromContext(captured)
			if tc.expectUserID {
				if !ok || userID != authtest.UserID {
					t.Errorf("Expected user ID %q, got %q", authtest.UserID, userID)
				}
			} else if ok {
				t.Errorf("Expected no user ID in context, got %q", userID)
			}

			if recorder.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", recorder.Code)
			}
		})
	}
}

func TestRefreshChallengeInvalidatesSignatures(t *testing.T) {
	provider := newTestProvider(t)
	old := provider.Challenge()
	sig, _ := base64.StdEncoding.DecodeString(sign(t, old))

	if !provider.Verify(sig) {
		t.Fatal("Expected signature over the current challenge to verify")
	}
	if err := provider.RefreshChallenge(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if provider.Verify(sig) {
		t.Error("Expected signature over the old challenge to be rejected")
	}
}

func TestChallengeReturnsCopy(t *testing.T) {
	provider := newTestProvider(t)
	c := provider.Challenge()
	c[0] ^= 0xff
	if provider.Challenge()[0] == c[0] {
		t.Error("Challenge exposes the provider's internal slice")
	}
}

func TestSignChallenge(t *testing.T) {
	key, err := LoadPrivateKey([]byte(authtest.PrivateKeyPEM))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := SignChallenge(key, "not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}

	challenge := []byte("challenge")
	sigB64, err := SignChallenge(key, base64.StdEncoding.EncodeToString(challenge))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	sig, _ := base64.StdEncoding.DecodeString(sigB64)
	if !ed25519.Verify(key.Public().(ed25519.PublicKey), challenge, sig) {
		t.Error("Signature does not verify")
	}

	if _, err := LoadPrivateKey([]byte("garbage")); err == nil {
		t.Error("Expected error for invalid PEM")
	}
}

func TestRequireUser(t *testing.T) {
	testCases := []struct {
		name       string
		provider   Provider
		wantStatus int
	}{
		{"static provider grants identity", StaticProvider{User: "admin"}, http.StatusOK},
		{"missing signature is rejected", nil, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.provider
			if p == nil {
				p = newTestProvider(t)
			}

			var got model.UserID
			handler := p.Middleware()(RequireUser(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = p.UserID(r)
			})))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus == http.StatusOK && got != "admin" {
				t.Errorf("Expected user admin, got %q", got)
			}
		})
	}
}
