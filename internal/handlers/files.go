package handlers

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/internal/services"
	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FilesHandler struct {
	Tree        *services.TreeService
	Access      *services.AccessService
	Collections *services.CollectionService
	Audit       *services.AuditService
}

func NewFilesHandler(tree *services.TreeService, access *services.AccessService, collections *services.CollectionService, audit *services.AuditService) *FilesHandler {
	return &FilesHandler{Tree: tree, Access: access, Collections: collections, Audit: audit}
}

func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasWriteAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "write privilege required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	entry, err := h.Tree.UploadFile(c.Context(), spaceID, c.Query("path"), filename, stream, fileHeader.Size, contentType, currentUser.Email)
	if err != nil {
		return respondServiceError(c, err, "failed uploading file")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_uploaded", map[string]interface{}{
		"entry_id":  entry.ID.String(),
		"file_name": entry.ItemName,
		"file_size": entry.Size,
		"space_id":  spaceID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.upload",
		ResourceType: "file_system_entry",
		ResourceID:   &entry.ID,
		Details: map[string]interface{}{
			"file_name": entry.ItemName,
			"file_size": entry.Size,
			"path":      c.Query("path"),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, entry)
}

func (h *FilesHandler) DownloadSingle(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasReadAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "read privilege required")
	}

	body, info, entry, err := h.Tree.DownloadFile(c.Context(), spaceID, c.Query("path"))
	if err != nil {
		return respondServiceError(c, err, "failed downloading file")
	}

	// Last-downloaded metadata only sticks for favorited entries.
	if err := h.Collections.RecordDownloadMetadata(c.Context(), currentUser.ID, []uuid.UUID{entry.ID}, time.Now().UTC()); err != nil {
		logger.Error("download_metadata_update_failed", err, map[string]interface{}{
			"entry_id": entry.ID.String(),
		})
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.download",
		ResourceType: "file_system_entry",
		ResourceID:   &entry.ID,
		Details: map[string]interface{}{
			"file_name": entry.ItemName,
			"file_size": entry.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.ItemName))
	return c.SendStream(body, int(info.Size))
}

// DownloadZip streams the requested files under a folder as a zip
// archive. With no files parameter the whole subtree is archived.
func (h *FilesHandler) DownloadZip(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasReadAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "read privilege required")
	}

	var files []string
	if raw := strings.TrimSpace(c.Query("files")); raw != "" {
		files = strings.Split(raw, ",")
	}

	path := c.Query("path")
	archiveName := "documents.zip"
	if segments := services.SplitPathSegments(path); len(segments) > 0 {
		archiveName = segments[len(segments)-1] + ".zip"
	}

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archiveName))

	if err := h.Tree.ZipFolderToWriter(c.Context(), spaceID, path, files, c.Response().BodyWriter()); err != nil {
		return respondServiceError(c, err, "failed streaming zip archive")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.download",
		ResourceType: "file_system_entry",
		Details: map[string]interface{}{
			"path":    path,
			"archive": archiveName,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return nil
}

// DownloadAll zips the entire space from the root.
func (h *FilesHandler) DownloadAll(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasReadAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "read privilege required")
	}

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", spaceID.String()+".zip"))

	if err := h.Tree.ZipFolderToWriter(c.Context(), spaceID, "", nil, c.Response().BodyWriter()); err != nil {
		return respondServiceError(c, err, "failed streaming zip archive")
	}
	return nil
}

type renameFileRequest struct {
	FilePath         string `json:"filePath"`
	ExistingFilename string `json:"existingFilename"`
	NewName          string `json:"newName"`
}

func (h *FilesHandler) Rename(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasWriteAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "write privilege required")
	}

	var req renameFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.Tree.RenameFile(c.Context(), spaceID, req.FilePath, req.ExistingFilename, req.NewName, currentUser.Email)
	if err != nil {
		return respondServiceError(c, err, "failed renaming file")
	}

	return utils.Success(c, fiber.StatusOK, entry)
}

func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	spaceID, err := parseUUID(c.Params("spaceId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid space id")
	}

	if !h.Access.HasWriteAccess(c.Context(), currentUser, spaceID) {
		return utils.Error(c, fiber.StatusForbidden, "write privilege required")
	}

	path := c.Query("path")
	if err := h.Tree.DeleteFile(c.Context(), spaceID, path, currentUser.Email); err != nil {
		return respondServiceError(c, err, "failed deleting file")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.delete",
		ResourceType: "file_system_entry",
		Details: map[string]interface{}{
			"path": path,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return c.SendStatus(fiber.StatusNoContent)
}
