package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := NewSessionStore(time.Hour)

	created := store.Create(Session{
		Name:        "Test User",
		Email:       "test@example.com",
		Roles:       []string{"S3-Admin"},
		Permissions: PermissionSet{PermissionView: true},
	})
	require.NotEmpty(t, created.ID)

	got := store.Get(created.ID)
	require.NotNil(t, got)
	assert.Equal(t, "Test User", got.Name)
	assert.True(t, got.Permissions.Has(PermissionView))
}

func TestSessionStoreUnknownID(t *testing.T) {
	store := NewSessionStore(time.Hour)
	assert.Nil(t, store.Get("no-such-session"))
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(-time.Second) // already expired on creation
	s := store.Create(Session{Name: "Ephemeral"})
	assert.Nil(t, store.Get(s.ID))
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore(time.Hour)
	s := store.Create(Session{Name: "Gone"})

	store.Delete(s.ID)
	assert.Nil(t, store.Get(s.ID))

	store.Delete(s.ID) // idempotent
}

func TestSessionStoreReloginReplacesWholesale(t *testing.T) {
	store := NewSessionStore(time.Hour)

	first := store.Create(Session{Name: "User", Roles: []string{"S3-Viewer"}})
	second := store.Create(Session{Name: "User", Roles: []string{"S3-Admin"}})

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{"S3-Viewer"}, store.Get(first.ID).Roles)
	assert.Equal(t, []string{"S3-Admin"}, store.Get(second.ID).Roles)
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	store := NewSessionStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := store.Create(Session{Name: "parallel"})
			require.NotNil(t, store.Get(s.ID))
			store.Delete(s.ID)
		}()
	}
	wg.Wait()
}
