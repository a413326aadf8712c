package security

import (
	"errors"
	"strings"
	"testing"
)

func TestSecretCipherRoundTrip(t *testing.T) {
	cipher, err := NewSecretCipher(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("create cipher: %v", err)
	}

	encrypted, err := cipher.Encrypt("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.HasPrefix(encrypted, "enc:v1:") {
		t.Fatalf("encrypted value missing prefix: %q", encrypted)
	}

	plain, err := cipher.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}
}

func TestSecretCipherPassesThroughLegacyPlaintext(t *testing.T) {
	cipher, err := NewSecretCipher(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("create cipher: %v", err)
	}

	plain, err := cipher.Decrypt("LEGACYSECRET")
	if err != nil {
		t.Fatalf("decrypt legacy value: %v", err)
	}
	if plain != "LEGACYSECRET" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}
}

func TestSecretCipherRejectsBadKey(t *testing.T) {
	if _, err := NewSecretCipher("short"); !errors.Is(err, ErrInvalidSecretCipherKey) {
		t.Fatalf("expected ErrInvalidSecretCipherKey, got %v", err)
	}
}
