package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ai-chatbot-client/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "identity.yaml")),
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx)
			require.ErrorIs(t, err, ErrIdentityNotFound)

			require.NoError(t, store.Save(ctx, &entity.User{Id: "17", Name: "ada"}))

			user, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, &entity.User{Id: "17", Name: "ada"}, user)

			require.NoError(t, store.Clear(ctx))
			_, err = store.Load(ctx)
			assert.ErrorIs(t, err, ErrIdentityNotFound)

			// clearing twice is fine
			assert.NoError(t, store.Clear(ctx))
		})
	}
}

func TestFileStoreSurvivesNewInstance(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.yaml")

	require.NoError(t, NewFileStore(path).Save(ctx, &entity.User{Id: "abc", Name: "grace"}))

	user, err := NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", user.Id)
	assert.Equal(t, "grace", user.Name)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreRequiresIdAndName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: \"5\"\n"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())

	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user := &entity.User{Id: "1", Name: "ada"}
	require.NoError(t, store.Save(ctx, user))

	user.Name = "mutated"
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada", loaded.Name)
}

func TestLoadOrCreateInstanceIdIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance-id")

	first, err := LoadOrCreateInstanceId(path)
	require.NoError(t, err)
	second, err := LoadOrCreateInstanceId(path)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewStore(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore(ctx, Options{FilePath: filepath.Join(t.TempDir(), "identity.yaml")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = NewStore(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()

	store, err := NewRedisStore(ctx, redisURL, "test-instance")
	require.NoError(t, err)
	defer store.Close()
	defer store.Clear(ctx)

	require.NoError(t, store.Save(ctx, &entity.User{Id: "9", Name: "linus"}))
	user, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "linus", user.Name)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}
