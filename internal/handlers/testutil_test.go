package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/airmencoders/tron-common-api-sub001/internal/database"
	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/internal/services"
	"github.com/airmencoders/tron-common-api-sub001/internal/storage"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeObjectStore satisfies services.ObjectStore without a MinIO server.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
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
	for _, key := range keys {
		delete(f.objects, key)
	}
	return nil
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

func (f *fakeObjectStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	store *fakeObjectStore
}

// setupTestEnv builds the full application wired exactly like main.go,
// against in-memory sqlite and an in-memory object store.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	utils.ConfigureJWT("test-jwt-secret", 1)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	store := newFakeObjectStore()

	accessService := services.NewAccessService(db)
	collectionService := services.NewCollectionService(db)
	resolver := services.NewPathResolver(db)
	treeService := services.NewTreeService(db, store, resolver, collectionService)
	auditService := services.NewAuditService(db, 16)

	authHandler := NewAuthHandler(db, auditService)
	spacesHandler := NewDocumentSpacesHandler(db, accessService, treeService, auditService)
	foldersHandler := NewFoldersHandler(treeService, accessService, collectionService, auditService)
	filesHandler := NewFilesHandler(treeService, accessService, collectionService, auditService)
	favoritesHandler := NewFavoritesHandler(collectionService, accessService, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New()
	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	spaceRoutes := api.Group("/document-space", authMiddleware.RequireAuth)
	spaceRoutes.Post("/", spacesHandler.Create)
	spaceRoutes.Get("/", spacesHandler.List)
	spaceRoutes.Delete("/:spaceId", spacesHandler.Delete)
	spaceRoutes.Post("/:spaceId/users", spacesHandler.GrantMember)
	spaceRoutes.Delete("/:spaceId/users/:userId", spacesHandler.RevokeMember)

	spaceRoutes.Post("/:spaceId/folders", foldersHandler.Create)
	spaceRoutes.Get("/:spaceId/contents", foldersHandler.Contents)
	spaceRoutes.Delete("/:spaceId/folders", foldersHandler.Delete)
	spaceRoutes.Patch("/:spaceId/folders/rename", foldersHandler.Rename)
	spaceRoutes.Get("/:spaceId/tree", foldersHandler.DumpTree)

	spaceRoutes.Post("/:spaceId/files/upload", filesHandler.Upload)
	spaceRoutes.Get("/:spaceId/files/download/single", filesHandler.DownloadSingle)
	spaceRoutes.Get("/:spaceId/files/download/all", filesHandler.DownloadAll)
	spaceRoutes.Get("/:spaceId/files/download", filesHandler.DownloadZip)
	spaceRoutes.Delete("/:spaceId/files/delete", filesHandler.Delete)
	spaceRoutes.Patch("/:spaceId/files/rename", filesHandler.Rename)

	spaceRoutes.Post("/:spaceId/collection/favorite/:entryId", favoritesHandler.Add)
	spaceRoutes.Delete("/:spaceId/collection/favorite/:entryId", favoritesHandler.Remove)
	spaceRoutes.Get("/:spaceId/collection/favorite", favoritesHandler.List)

	return &testEnv{app: app, db: db, store: store}
}

// createTestUser inserts a user directly and returns it with a token.
func createTestUser(t *testing.T, env *testEnv, email string, role models.UserRole) (*models.DashboardUser, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)

	user := &models.DashboardUser{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	require.NoError(t, env.db.Create(user).Error)

	token, err := utils.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func performRequest(t *testing.T, app *fiber.App, method, target, token string, body io.Reader) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, target, token string, payload interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return performRequest(t, app, method, target, token, bytes.NewReader(data))
}

func performUpload(t *testing.T, app *fiber.App, target, token, filename, content string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func dataField(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	body := decodeJSON(t, resp)
	require.Equal(t, true, body["success"], "expected success envelope, got %v", body)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "data field is not an object: %v", body)
	return data
}

func dataList(t *testing.T, resp *http.Response) []interface{} {
	t.Helper()

	body := decodeJSON(t, resp)
	require.Equal(t, true, body["success"], "expected success envelope, got %v", body)
	data, ok := body["data"].([]interface{})
	require.True(t, ok, "data field is not a list: %v", body)
	return data
}

func entryID(t *testing.T, data map[string]interface{}) uuid.UUID {
	t.Helper()

	raw, ok := data["id"].(string)
	require.True(t, ok, "entry has no id: %v", data)
	id, err := uuid.Parse(raw)
	require.NoError(t, err)
	return id
}
