package utils

import (
	"fmt"
	"testing"
	"time"
)

// uniqueEmail avoids key collisions across runs when a live Redis backs the
// store.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s+%d@example.com", prefix, time.Now().UnixNano())
}

func TestGenerateVerificationCode(t *testing.T) {
	code := GenerateVerificationCode(6)
	if len(code) != 6 {
		t.Fatalf("code %q has length %d, want 6", code, len(code))
	}
	for _, ch := range code {
		if ch < '0' || ch > '9' {
			t.Fatalf("code %q contains a non-digit", code)
		}
	}

	if got := GenerateVerificationCode(0); len(got) != 6 {
		t.Fatalf("zero length request produced %q, want the default 6 digits", got)
	}
}

func TestVerifyAndConsumeCode(t *testing.T) {
	email := uniqueEmail("verify")
	SaveCode(email, "123456", time.Minute)

	if VerifyAndConsumeCode(email, "999999") {
		t.Fatal("wrong code accepted")
	}
	// a wrong guess burns the stored code
	if VerifyAndConsumeCode(email, "123456") {
		t.Fatal("code survived a failed attempt")
	}

	email2 := uniqueEmail("verify2")
	SaveCode(email2, "654321", time.Minute)
	if !VerifyAndConsumeCode(email2, "654321") {
		t.Fatal("correct code rejected")
	}
	if VerifyAndConsumeCode(email2, "654321") {
		t.Fatal("code verified twice")
	}
}

func TestVerifyAndConsumeCodeUnknownEmail(t *testing.T) {
	if VerifyAndConsumeCode(uniqueEmail("nobody"), "123456") {
		t.Fatal("code accepted for an address that never requested one")
	}
}

func TestEmailCooldown(t *testing.T) {
	email := uniqueEmail("cooldown")

	if !EmailCooldownTrySet(email, time.Minute) {
		t.Fatal("first send blocked")
	}
	if EmailCooldownTrySet(email, time.Minute) {
		t.Fatal("second send allowed inside the cooldown window")
	}
	if !EmailCooldownTrySet(uniqueEmail("other"), time.Minute) {
		t.Fatal("cooldown leaked to another address")
	}
}
