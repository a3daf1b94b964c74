package utils

import (
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "utils-test-secret")
	os.Exit(m.Run())
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(12, "astra", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 12 {
		t.Fatalf("UserID = %d, want 12", claims.UserID)
	}
	if claims.Username != "astra" {
		t.Fatalf("Username = %s, want astra", claims.Username)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatalf("ExpiresAt = %v, want in the future", claims.ExpiresAt)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken(3, "ghost", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(token); err == nil {
		t.Fatal("expired token parsed without error")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	for _, bad := range []string{"", "x", "aaa.bbb.ccc"} {
		if _, err := ParseToken(bad); err == nil {
			t.Fatalf("ParseToken(%q) succeeded", bad)
		}
	}
}

func TestBlacklistToken(t *testing.T) {
	token, err := GenerateToken(5, "leaver", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if IsTokenBlacklisted(token) {
		t.Fatal("fresh token reported blacklisted")
	}

	BlacklistToken(token, time.Now().Add(time.Hour))
	if !IsTokenBlacklisted(token) {
		t.Fatal("blacklisted token not detected")
	}
}

func TestBlacklistIgnoresExpiredTokens(t *testing.T) {
	// a token already past its expiry needs no blacklist entry
	BlacklistToken("stale-token", time.Now().Add(-time.Minute))
	if IsTokenBlacklisted("stale-token") {
		t.Fatal("expired blacklist entry still reported")
	}
}
