package cache

import (
	"errors"

	"github.com/cespare/xxhash/v2"
	"github.com/porthorian/accountgate/pkg/connector"
)

var (
	ErrMissingIdentity = errors.New("cache: identity is required")
	ErrMissingSecret   = errors.New("cache: secret is required")
	ErrMissingActingAs = errors.New("cache: acting-as identity is required")
)

// AuthKey is the structural identity of a login attempt. The zero value is
// not a valid key; use NewAuthKey.
type AuthKey struct {
	identity connector.Identity
	secret   string
	actingAs connector.Identity
	hash     uint64
}

// NewAuthKey builds a key and precomputes its hash. Every field is required.
func NewAuthKey(identity connector.Identity, secret string, actingAs connector.Identity) (AuthKey, error) {
	if identity == "" {
		return AuthKey{}, ErrMissingIdentity
	}
	if secret == "" {
		return AuthKey{}, ErrMissingSecret
	}
	if actingAs == "" {
		return AuthKey{}, ErrMissingActingAs
	}

	d := xxhash.New()
	_, _ = d.WriteString(string(identity))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(secret)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(string(actingAs))

	return AuthKey{
		identity: identity,
		secret:   secret,
		actingAs: actingAs,
		hash:     d.Sum64(),
	}, nil
}

func (k AuthKey) Identity() connector.Identity {
	return k.identity
}

func (k AuthKey) ActingAs() connector.Identity {
	return k.actingAs
}

func (k AuthKey) Secret() string {
	return k.secret
}

func (k AuthKey) Hash() uint64 {
	return k.hash
}

// String never includes the secret.
func (k AuthKey) String() string {
	if k.identity == k.actingAs {
		return string(k.identity)
	}
	return string(k.identity) + " as " + string(k.actingAs)
}

func (k AuthKey) GoString() string {
	return "cache.AuthKey{" + k.String() + "}"
}
