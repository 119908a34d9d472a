package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-32-chars-min!!!"

func mustSigner(t *testing.T, expiry time.Duration) *Signer {
	t.Helper()
	s, err := NewSigner(testSecret, expiry)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	return s
}

// ===== BCRYPT TESTS =====

func TestHashPassword(t *testing.T) {
	t.Parallel()

	password := "MySecurePassword123!"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == password {
		t.Error("Hash should not equal plaintext password")
	}
	if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") {
		t.Errorf("Hash format is invalid: %s", hash)
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	password := "MySecurePassword123!"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	cases := []struct {
		name     string
		hash     string
		password string
		want     bool
	}{
		{"correct", hash, password, true},
		{"wrong", hash, "DifferentPassword", false},
		{"case sensitive", hash, "mysecurepassword123!", false},
		{"invalid hash", "not-a-valid-hash", password, false},
		{"empty hash", "", "", false},
	}
	for _, tc := range cases {
		if got := VerifyPassword(tc.hash, tc.password); got != tc.want {
			t.Errorf("%s: VerifyPassword = %v; want %v", tc.name, got, tc.want)
		}
	}
}

func TestHashPassword_Salted(t *testing.T) {
	t.Parallel()

	hash1, _ := HashPassword("same") //nolint:errcheck
	hash2, _ := HashPassword("same") //nolint:errcheck
	if hash1 == hash2 {
		t.Error("HashPassword should produce different hashes for same password")
	}
}

// ===== JWT TESTS =====

func TestNewSigner_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewSigner("", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("NewSigner(\"\") error = %v; want ErrNoSecret", err)
	}
}

func TestNewSigner_DefaultExpiry(t *testing.T) {
	t.Parallel()

	if got := mustSigner(t, 0).Expiry(); got != DefaultExpiry {
		t.Errorf("Expiry() = %v; want %v", got, DefaultExpiry)
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, time.Hour)
	token, err := s.Generate("ci-bot")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("JWT should have 3 parts: %s", token)
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed for valid token: %v", err)
	}
	if claims.ClientID != "ci-bot" {
		t.Errorf("ClientID = %q; want %q", claims.ClientID, "ci-bot")
	}
	if claims.Subject != "ci-bot" {
		t.Errorf("Subject = %q; want %q", claims.Subject, "ci-bot")
	}
}

func TestSigner_ParseRejects(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, time.Hour)
	other, err := NewSigner("another-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	foreign, _ := other.Generate("ci-bot") //nolint:errcheck

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "invalid.token.here",
		"wrong secret":   foreign,
		"not three part": "abc",
	} {
		if _, err := s.Parse(token); err == nil {
			t.Errorf("%s: Parse should fail", name)
		}
	}
}

func TestSigner_ExpiredToken(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, time.Hour)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := s.Generate("ci-bot")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	s.now = time.Now
	if _, err := s.Parse(token); err == nil || !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("Parse error = %v; want ErrTokenExpired", err)
	}
}

func TestSigner_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	s := mustSigner(t, time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{ClientID: "x"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := s.Parse(token); err == nil {
		t.Error("Parse should reject alg=none")
	}
}
