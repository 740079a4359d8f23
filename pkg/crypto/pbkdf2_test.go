package crypto

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testPBKDF2Hasher() *PBKDF2Hasher {
	return NewPBKDF2Hasher(PBKDF2Options{
		Iterations: 1000,
		SaltBytes:  16,
		KeyBytes:   32,
	})
}

func TestPBKDF2HashAndVerify(t *testing.T) {
	hasher := testPBKDF2Hasher()

	encoded, err := hasher.Hash("secret-pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "pbkdf2$sha256$1000$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	ok, err := hasher.Verify("secret-pass", encoded)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected hash verification to succeed")
	}

	ok, err = hasher.Verify("wrong-pass", encoded)
	if err != nil {
		t.Fatalf("verify wrong password failed with error: %v", err)
	}
	if ok {
		t.Fatal("expected hash verification to fail for wrong password")
	}
}

func TestPBKDF2VerifyInvalidHash(t *testing.T) {
	hasher := testPBKDF2Hasher()

	for _, encoded := range []string{
		"invalid",
		"pbkdf2$sha1$1000$c2FsdA$a2V5",
		"pbkdf2$sha256$0$c2FsdA$a2V5",
		"pbkdf2$sha256$1000$!!$a2V5",
	} {
		ok, err := hasher.Verify("secret-pass", encoded)
		if !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("expected invalid hash error for %q, got %v", encoded, err)
		}
		if ok {
			t.Fatalf("expected verification of %q to fail", encoded)
		}
	}
}

func TestPBKDF2RejectsEmptyPassword(t *testing.T) {
	hasher := testPBKDF2Hasher()

	if _, err := hasher.Hash(""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if _, err := hasher.Verify("", "pbkdf2$sha256$1000$c2FsdA$a2V5"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestSchemeHasherVerifiesBothSchemes(t *testing.T) {
	bcryptHasher := NewBcryptHasher(bcrypt.MinCost)
	hasher := NewSchemeHasher(testPBKDF2Hasher(), bcryptHasher)

	pbkdf2Encoded, err := hasher.Hash("pw")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	bcryptEncoded, err := bcryptHasher.Hash("pw")
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}

	for _, encoded := range []string{pbkdf2Encoded, bcryptEncoded} {
		ok, err := hasher.Verify("pw", encoded)
		if err != nil || !ok {
			t.Fatalf("expected %q to verify, got %v %v", encoded, ok, err)
		}
		ok, err = hasher.Verify("nope", encoded)
		if err != nil || ok {
			t.Fatalf("expected %q to reject wrong password, got %v %v", encoded, ok, err)
		}
	}

	if _, err := hasher.Verify("pw", "md5$abc"); !errors.Is(err, ErrUnknownScheme) {
		t.Fatalf("expected unknown scheme, got %v", err)
	}
	if _, err := hasher.Verify("pw", "$2a$04$short"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected invalid bcrypt hash, got %v", err)
	}
}
