package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/internal/config"
)

const (
	testAPIKey    = "api-key"
	testAPISecret = "api-secret"
)

func signSession(t *testing.T, secret string, claims SessionClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func sessionClaims(shop string, exp time.Time) SessionClaims {
	return SessionClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Audience:  jwt.ClaimStrings{testAPIKey},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Minute)),
		},
	}
}

func TestSessionVerifier_Verified(t *testing.T) {
	v := NewSessionVerifier(config.SessionModeVerified, testAPIKey, testAPISecret)
	future := time.Now().Add(time.Minute)
	past := time.Now().Add(-time.Hour)

	wrongIssuer := sessionClaims("shop-a.myshopify.com", future)
	wrongIssuer.Issuer = "https://shop-b.myshopify.com/admin"

	wrongAudience := sessionClaims("shop-a.myshopify.com", future)
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}

	tests := []struct {
		name     string
		token    string
		wantShop string
		wantErr  bool
	}{
		{"valid", signSession(t, testAPISecret, sessionClaims("shop-a.myshopify.com", future)), "shop-a.myshopify.com", false},
		{"bearer prefix", "Bearer " + signSession(t, testAPISecret, sessionClaims("shop-a.myshopify.com", future)), "shop-a.myshopify.com", false},
		{"lowercase bearer prefix", "bearer " + signSession(t, testAPISecret, sessionClaims("shop-a.myshopify.com", future)), "shop-a.myshopify.com", false},
		{"expired", signSession(t, testAPISecret, sessionClaims("shop-a.myshopify.com", past)), "", true},
		{"bad signature", signSession(t, "wrong-secret", sessionClaims("shop-a.myshopify.com", future)), "", true},
		{"issuer mismatch", signSession(t, testAPISecret, wrongIssuer), "", true},
		{"audience mismatch", signSession(t, testAPISecret, wrongAudience), "", true},
		{"missing", "", "", true},
		{"garbage", "not.a.jwt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shop, err := v.Verify(tt.token)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrUnauthenticated) {
					t.Errorf("Verify() error = %v, want ErrUnauthenticated", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if shop != tt.wantShop {
				t.Errorf("Verify() = %s, want %s", shop, tt.wantShop)
			}
		})
	}
}

func TestSessionVerifier_RejectsNoneAlg(t *testing.T) {
	v := NewSessionVerifier(config.SessionModeVerified, testAPIKey, testAPISecret)
	claims := sessionClaims("shop-a.myshopify.com", time.Now().Add(time.Minute))
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(tok); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("Verify(alg=none) error = %v", err)
	}
}

func TestSessionVerifier_DecodeMode(t *testing.T) {
	v := NewSessionVerifier(config.SessionModeDecode, testAPIKey, testAPISecret)
	if v.Mode() != config.SessionModeDecode {
		t.Fatalf("Mode() = %s", v.Mode())
	}

	// 解析模式不校验签名
	tok := signSession(t, "any-secret", sessionClaims("shop-a.myshopify.com", time.Now().Add(time.Minute)))
	shop, err := v.Verify(tok)
	if err != nil || shop != "shop-a.myshopify.com" {
		t.Fatalf("Verify() = %s, %v", shop, err)
	}

	// 但仍然拒绝过期令牌
	expired := signSession(t, "any-secret", sessionClaims("shop-a.myshopify.com", time.Now().Add(-time.Hour)))
	if _, err := v.Verify(expired); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("Verify(expired) error = %v", err)
	}
}

func TestTenantFromDest(t *testing.T) {
	cases := map[string]string{
		"https://shop-a.myshopify.com":       "shop-a.myshopify.com",
		"https://shop-a.myshopify.com/":      "shop-a.myshopify.com",
		"https://Shop-A.myshopify.com/admin": "shop-a.myshopify.com",
		"http://shop-a.myshopify.com":        "shop-a.myshopify.com",
		"shop-a.myshopify.com":               "shop-a.myshopify.com",
		"":                                   "",
	}
	for in, want := range cases {
		if got := TenantFromDest(in); got != want {
			t.Errorf("TenantFromDest(%q) = %q, want %q", in, got, want)
		}
	}
}
