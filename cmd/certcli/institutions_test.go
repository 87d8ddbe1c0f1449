package main

import (
	"testing"
	"time"

	"github.com/go-oidfed/lib/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal"
	"github.com/certledger/certledger/storage"
	"github.com/certledger/certledger/storage/model"
)

func TestSetVerificationClearsLookupCache(t *testing.T) {
	st, err := storage.NewStorage(
		storage.Config{
			Driver:  storage.DriverSQLite,
			DataDir: t.TempDir(),
			PasswordHashing: storage.Argon2idParams{
				Time:        1,
				MemoryKiB:   1024,
				Parallelism: 1,
				KeyLen:      32,
				SaltLen:     16,
			},
		},
	)
	require.NoError(t, err)
	store := st.InstitutionsStorage()
	inst, err := store.Create("Test University", "password")
	require.NoError(t, err)

	key := cache.Key(internal.CacheKeyCertificateLookup, "some-token-hash")
	require.NoError(t, cache.Set(key, []byte(`{"verification":"unverified"}`), time.Minute))

	got, err := setVerification(store, inst.ID, model.VerificationVerified)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, got.Verification)

	var cached []byte
	set, err := cache.Get(key, &cached)
	require.NoError(t, err)
	assert.False(t, set, "lookups must not survive a verification change")

	_, err = setVerification(store, "unknown", model.VerificationVerified)
	assert.Error(t, err)
}
