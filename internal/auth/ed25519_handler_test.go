package auth

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEd25519ChallengeHandler(t *testing.T) {
	provider := newTestProvider(t)
	handler := Ed25519ChallengeHandler(provider)

	testCases := []struct {
		name           string
		method         string
		expectedStatus int
		expectRotation bool
	}{
		{"GET returns the current challenge", http.MethodGet, http.StatusOK, false},
		{"POST rotates the challenge", http.MethodPost, http.StatusOK, true},
		{"PUT method not allowed", http.MethodPut, http.StatusMethodNotAllowed, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := base64.StdEncoding.EncodeToString(provider.Challenge())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, "/auth/challenge", nil))

			if rec.Code != tc.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tc.expectedStatus, rec.Code)
			}
			if tc.expectedStatus != http.StatusOK {
				return
			}

			var resp challengeResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if rotated := resp.Challenge != before; rotated != tc.expectRotation {
				t.Errorf("Expected rotation=%v, got %v", tc.expectRotation, rotated)
			}
			if resp.Challenge != base64.StdEncoding.EncodeToString(provider.Challenge()) {
				t.Error("Response does not match the provider's challenge")
			}
		})
	}
}

func TestEd25519VerifyHandler(t *testing.T) {
	provider := newTestProvider(t)
	handler := Ed25519VerifyHandler(provider)
	valid := sign(t, provider.Challenge())

	testCases := []struct {
		name           string
		method         string
		header         string
		tls            bool
		expectedStatus int
		expectCookie   bool
	}{
		{"Valid signature", http.MethodPost, valid, false, http.StatusOK, true},
		{"Valid signature over TLS", http.MethodPost, valid, true, http.StatusOK, true},
		{"Missing header", http.MethodPost, "", false, http.StatusUnauthorized, false},
		{"Malformed signature", http.MethodPost, "%%%", false, http.StatusUnauthorized, false},
		{"Wrong signature", http.MethodPost, base64.StdEncoding.EncodeToString(make([]byte, 64)), false, http.StatusUnauthorized, false},
		{"GET not allowed", http.MethodGet, valid, false, http.StatusMethodNotAllowed, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/auth/verify", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.tls {
				req.TLS = &tls.ConnectionState{}
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, rec.Code)
			}

			var cookie *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == "auth_token" {
					cookie = c
				}
			}
			if tc.expectCookie != (cookie != nil) {
				t.Fatalf("Expected cookie=%v, got %v", tc.expectCookie, cookie)
			}
			if cookie != nil {
				if cookie.Value != valid || !cookie.HttpOnly {
					t.Errorf("Unexpected cookie: %+v", cookie)
				}
				if cookie.Secure != tc.tls {
					t.Errorf("Expected Secure=%v, got %v", tc.tls, cookie.Secure)
				}
			}
		})
	}
}

func TestRegisterEd25519AuthRoutes(t *testing.T) {
	provider := newTestProvider(t)
	mux := http.NewServeMux()
	RegisterEd25519AuthRoutes(mux, provider)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/challenge", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected challenge route to be registered, got %d", rec.Code)
	}
}
