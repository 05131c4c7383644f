package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/airmencoders/tron-common-api-sub001/internal/database"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/internal/storage"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "opening in-memory sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "automigrating models")
	return db
}

// fakeObjectStore is an in-memory ObjectStore. Keys listed in failKeys
// error on every read, mimicking object-store outages.
type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failKeys map[string]bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:  map[string][]byte{},
		failKeys: map[string]bool{},
	}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) Download(_ context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[key] {
		return nil, nil, io.ErrUnexpectedEOF
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), &storage.ObjectInfo{
		ContentType: "application/octet-stream",
		Size:        int64(len(data)),
	}, nil
}

func (f *fakeObjectStore) Copy(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[src]
	if !ok {
		return io.ErrUnexpectedEOF
	}
	f.objects[dst] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjectStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) RemoveAll(_ context.Context, keys []string) []storage.KeyError {
	f.mu.Lock()
	defer f.mu.Unlock()
	var failures []storage.KeyError
	for _, key := range keys {
		if f.failKeys[key] {
			failures = append(failures, storage.KeyError{Key: key, Err: io.ErrUnexpectedEOF})
			continue
		}
		delete(f.objects, key)
	}
	return failures
}

func (f *fakeObjectStore) RemoveByPrefix(_ context.Context, prefix string) []storage.KeyError {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *fakeObjectStore) DownloadAndZip(ctx context.Context, entries []storage.ObjectKeyEntry, w io.Writer) error {
	return storage.WriteZip(ctx, func(ctx context.Context, key string) (io.ReadCloser, error) {
		body, _, err := f.Download(ctx, key)
		return body, err
	}, entries, w)
}

func (f *fakeObjectStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for key := range f.objects {
		out = append(out, key)
	}
	return out
}

type testFixture struct {
	db          *gorm.DB
	store       *fakeObjectStore
	resolver    *PathResolver
	tree        *TreeService
	collections *CollectionService
	space       models.DocumentSpace
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	db := openTestDB(t)
	store := newFakeObjectStore()
	resolver := NewPathResolver(db)
	collections := NewCollectionService(db)
	tree := NewTreeService(db, store, resolver, collections)

	space := models.DocumentSpace{Name: "test-space"}
	require.NoError(t, db.Create(&space).Error)

	return &testFixture{
		db:          db,
		store:       store,
		resolver:    resolver,
		tree:        tree,
		collections: collections,
		space:       space,
	}
}

func uploadTestFile(t *testing.T, fx *testFixture, parentPath, name, content string) *models.FileSystemEntry {
	t.Helper()
	entry, err := fx.tree.UploadFile(context.Background(), fx.space.ID, parentPath, name,
		bytes.NewReader([]byte(content)), int64(len(content)), "application/octet-stream", "tester")
	require.NoError(t, err, "uploading %s under %q", name, parentPath)
	return entry
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.DashboardUser {
	t.Helper()
	user := &models.DashboardUser{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         models.UserRoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
