package crypto

// SchemeHasher hashes with PBKDF2 and verifies any supported scheme,
// picked from the encoded hash prefix.
type SchemeHasher struct {
	pbkdf2 *PBKDF2Hasher
	bcrypt *BcryptHasher
}

var _ Hasher = (*SchemeHasher)(nil)

func NewSchemeHasher(pbkdf2 *PBKDF2Hasher, bcrypt *BcryptHasher) *SchemeHasher {
	if pbkdf2 == nil {
		pbkdf2 = NewPBKDF2Hasher(DefaultPBKDF2Options())
	}
	if bcrypt == nil {
		bcrypt = NewBcryptHasher(0)
	}
	return &SchemeHasher{pbkdf2: pbkdf2, bcrypt: bcrypt}
}

func (h *SchemeHasher) Hash(password string) (string, error) {
	return h.pbkdf2.Hash(password)
}

func (h *SchemeHasher) Verify(password string, encodedHash string) (bool, error) {
	switch {
	case isPBKDF2Hash(encodedHash):
		return h.pbkdf2.Verify(password, encodedHash)
	case isBcryptHash(encodedHash):
		return h.bcrypt.Verify(password, encodedHash)
	default:
		return false, ErrUnknownScheme
	}
}
