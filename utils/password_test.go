package utils

import (
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash %q does not look like bcrypt", hash)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in the clear")
	}

	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Fatal("wrong password accepted")
	}
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	if CheckPassword("", "anything") {
		t.Fatal("empty hash matched a password")
	}
}
