package handlers

import (
	"net/http"
	"testing"

	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestSpace(t *testing.T, env *testEnv, token, name string) uuid.UUID {
	t.Helper()

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/document-space/", token, map[string]string{
		"name": name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return entryID(t, dataField(t, resp))
}

func TestCreateDocumentSpace(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env, "owner@example.com", models.UserRoleUser)

	t.Run("creator receives every privilege", func(t *testing.T) {
		spaceID := createTestSpace(t, env, token, "engineering")

		var member models.DocumentSpaceMember
		require.NoError(t, env.db.
			Where("document_space_id = ? AND dashboard_user_id = ?", spaceID, user.ID).
			First(&member).Error)
		assert.True(t, member.CanRead)
		assert.True(t, member.CanWrite)
		assert.True(t, member.CanManage)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/document-space/", token, map[string]string{
			"name": "engineering",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/document-space/", token, map[string]string{
			"name": "   ",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/document-space/", "", map[string]string{
			"name": "anonymous-space",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestListDocumentSpaces(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerToken := createTestUser(t, env, "owner@example.com", models.UserRoleUser)
	_, strangerToken := createTestUser(t, env, "stranger@example.com", models.UserRoleUser)
	_, adminToken := createTestUser(t, env, "admin@example.com", models.UserRoleAdmin)

	createTestSpace(t, env, ownerToken, "alpha")
	createTestSpace(t, env, ownerToken, "beta")

	t.Run("members see their spaces", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/document-space/", ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, dataList(t, resp), 2)
	})

	t.Run("non-members see nothing", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/document-space/", strangerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, dataList(t, resp))
	})

	t.Run("admins see everything", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/document-space/", adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, dataList(t, resp), 2)
	})
}

func TestDeleteDocumentSpace(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerToken := createTestUser(t, env, "owner@example.com", models.UserRoleUser)
	_, memberToken := createTestUser(t, env, "member@example.com", models.UserRoleUser)

	spaceID := createTestSpace(t, env, ownerToken, "doomed")

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/document-space/"+spaceID.String()+"/users", ownerToken, map[string]interface{}{
		"email": "member@example.com", "canRead": true, "canWrite": true,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/document-space/"+spaceID.String()+"/folders", ownerToken, map[string]string{
		"path": "", "folderName": "stuff",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = performUpload(t, env.app, "/api/document-space/"+spaceID.String()+"/files/upload?path=stuff", ownerToken, "a.txt", "bytes")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("write access is not enough", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/document-space/"+spaceID.String(), memberToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("manager deletes space with all contents", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/document-space/"+spaceID.String(), ownerToken, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		var spaces, entries, members int64
		require.NoError(t, env.db.Model(&models.DocumentSpace{}).Where("id = ?", spaceID).Count(&spaces).Error)
		require.NoError(t, env.db.Model(&models.FileSystemEntry{}).Where("document_space_id = ?", spaceID).Count(&entries).Error)
		require.NoError(t, env.db.Model(&models.DocumentSpaceMember{}).Where("document_space_id = ?", spaceID).Count(&members).Error)
		assert.Zero(t, spaces)
		assert.Zero(t, entries)
		assert.Zero(t, members)
		assert.Zero(t, env.store.count(), "objects purged with the space")
	})
}

func TestGrantAndRevokeMember(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerToken := createTestUser(t, env, "owner@example.com", models.UserRoleUser)
	member, memberToken := createTestUser(t, env, "member@example.com", models.UserRoleUser)

	spaceID := createTestSpace(t, env, ownerToken, "shared")
	base := "/api/document-space/" + spaceID.String()

	t.Run("grant read access", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, base+"/users", ownerToken, map[string]interface{}{
			"email": "member@example.com", "canRead": true,
		})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = performRequest(t, env.app, http.MethodGet, base+"/contents", memberToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("read access cannot grant others", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, base+"/users", memberToken, map[string]interface{}{
			"email": "owner@example.com", "canRead": true,
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown grantee email", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, base+"/users", ownerToken, map[string]interface{}{
			"email": "ghost@example.com", "canRead": true,
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("revoke removes access", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, base+"/users/"+member.ID.String(), ownerToken, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = performRequest(t, env.app, http.MethodGet, base+"/contents", memberToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
