package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/porthorian/accountgate/pkg/cache"
	"github.com/porthorian/accountgate/pkg/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConnection struct {
	name string
}

func (s *stubConnection) Ping(ctx context.Context) error { return nil }
func (s *stubConnection) Close() error                   { return nil }

func mustKey(t *testing.T, identity, secret, actingAs string) cache.AuthKey {
	t.Helper()
	key, err := cache.NewAuthKey(connector.Identity(identity), secret, connector.Identity(actingAs))
	require.NoError(t, err)
	return key
}

func TestAdapterLoadOrStoreFirstWriterWins(t *testing.T) {
	a := NewAdapter()
	key := mustKey(t, "alice", "pw", "alice")

	_, ok := a.Load(key)
	assert.False(t, ok)

	first := &stubConnection{name: "first"}
	actual, loaded := a.LoadOrStore(key, first)
	assert.False(t, loaded)
	assert.Same(t, first, actual)

	actual, loaded = a.LoadOrStore(key, &stubConnection{name: "second"})
	assert.True(t, loaded)
	assert.Same(t, first, actual)

	got, ok := a.Load(mustKey(t, "alice", "pw", "alice"))
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, a.Len())
}

func TestAdapterConcurrentInserts(t *testing.T) {
	a := NewAdapter()
	key := mustKey(t, "bob", "pw", "bob")

	const writers = 32
	winners := make([]connector.Connection, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			winners[i], _ = a.LoadOrStore(key, &stubConnection{})
		}(i)
	}
	wg.Wait()

	for _, w := range winners {
		assert.Same(t, winners[0], w)
	}
	assert.Equal(t, 1, a.Len())
}

func TestAdapterRange(t *testing.T) {
	a := NewAdapter()
	a.LoadOrStore(mustKey(t, "a", "1", "a"), &stubConnection{name: "a"})
	a.LoadOrStore(mustKey(t, "b", "1", "b"), &stubConnection{name: "b"})

	seen := map[string]bool{}
	a.Range(func(key cache.AuthKey, conn connector.Connection) bool {
		seen[key.String()] = true
		return true
	})
	assert.Equal(t, map[string]bool{"a": true, "b": true}, seen)
}
