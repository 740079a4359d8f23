package cache

import "github.com/porthorian/accountgate/pkg/connector"

// ConnectionStore is the shared AuthKey to Connection map behind a
// ConnectionCache. Entries are only ever added.
type ConnectionStore interface {
	Load(key AuthKey) (connector.Connection, bool)
	// LoadOrStore inserts conn when key is absent. It returns the stored
	// connection and whether it was already present.
	LoadOrStore(key AuthKey, conn connector.Connection) (connector.Connection, bool)
	Range(fn func(key AuthKey, conn connector.Connection) bool)
	Len() int
}
