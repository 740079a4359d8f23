package memory

import (
	"github.com/porthorian/accountgate/pkg/cache"
	"github.com/porthorian/accountgate/pkg/connector"
	"github.com/puzpuzpuz/xsync/v3"
)

// Adapter is a lock-free in-process ConnectionStore.
type Adapter struct {
	entries *xsync.MapOf[cache.AuthKey, connector.Connection]
}

var _ cache.ConnectionStore = (*Adapter)(nil)

func NewAdapter() *Adapter {
	return &Adapter{
		entries: xsync.NewMapOfWithHasher[cache.AuthKey, connector.Connection](hashKey),
	}
}

func (a *Adapter) Load(key cache.AuthKey) (connector.Connection, bool) {
	return a.entries.Load(key)
}

func (a *Adapter) LoadOrStore(key cache.AuthKey, conn connector.Connection) (connector.Connection, bool) {
	return a.entries.LoadOrStore(key, conn)
}

func (a *Adapter) Range(fn func(key cache.AuthKey, conn connector.Connection) bool) {
	a.entries.Range(fn)
}

func (a *Adapter) Len() int {
	return a.entries.Size()
}

func hashKey(key cache.AuthKey, seed uint64) uint64 {
	h := key.Hash() ^ seed
	// splitmix64 finalizer
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}
