package infrastructure

import (
	"encoding/base64"
	"testing"
)

func TestCredentialRoundTrip(t *testing.T) {
	store := NewAESCredentialStore("unit-test-secret")

	sealed, err := store.Encrypt("123456:bot-api-token")
	if err != nil {
		t.Fatal(err)
	}
	if sealed == "123456:bot-api-token" {
		t.Fatal("ciphertext equals plaintext")
	}

	plain, err := store.Decrypt(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if plain != "123456:bot-api-token" {
		t.Fatalf("round trip = %q", plain)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	store := NewAESCredentialStore("unit-test-secret")
	sealed, err := store.Encrypt("123456:bot-api-token")
	if err != nil {
		t.Fatal(err)
	}

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := store.Decrypt(tampered); err == nil {
		t.Fatal("tampered ciphertext decrypted without error")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	sealed, err := NewAESCredentialStore("secret-a").Encrypt("token")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAESCredentialStore("secret-b").Decrypt(sealed); err == nil {
		t.Fatal("ciphertext decrypted with the wrong key")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	store := NewAESCredentialStore("unit-test-secret")
	if _, err := store.Decrypt("%%%not-base64%%%"); err == nil {
		t.Fatal("invalid base64 accepted")
	}
	if _, err := store.Decrypt(base64.StdEncoding.EncodeToString([]byte("xy"))); err == nil {
		t.Fatal("short ciphertext accepted")
	}
}
