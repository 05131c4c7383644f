package handlers

import (
	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/internal/services"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FoldersHandler struct {
	Tree        *services.TreeService
	Access      *services.AccessService
	Collections *services.CollectionService
	Audit       *services.AuditService
}

func NewFoldersHandler(tree *services.TreeService, access *services.AccessService, collections *services.CollectionService, audit *services.AuditService) *FoldersHandler {
	return &FoldersHandler{Tree: tree, Access: access, Collections: collections, Audit: audit}
}

type createFolderRequest struct {
	Path       string `json:"path"`
	FolderName string `json:"folderName"`
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
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

	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.Tree.AddFolder(c.Context(), spaceID, req.Path, req.FolderName, currentUser.Email)
	if err != nil {
		return respondServiceError(c, err, "failed creating folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.create",
		ResourceType: "file_system_entry",
		ResourceID:   &entry.ID,
		Details: map[string]interface{}{
			"folder_name": entry.ItemName,
			"parent_path": req.Path,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, entry)
}

// contentEntry decorates a listing row with the caller's favorite flag.
type contentEntry struct {
	models.FileSystemEntry
	Favorite bool `json:"favorite"`
}

func (h *FoldersHandler) Contents(c *fiber.Ctx) error {
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

	children, _, err := h.Tree.ListContents(c.Context(), spaceID, c.Query("path"))
	if err != nil {
		return respondServiceError(c, err, "failed listing folder contents")
	}

	ids := make([]uuid.UUID, len(children))
	for i, child := range children {
		ids[i] = child.ID
	}
	favorites, err := h.Collections.FavoriteIDs(c.Context(), spaceID, currentUser.ID, ids)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading favorite flags")
	}

	out := make([]contentEntry, len(children))
	for i, child := range children {
		out[i] = contentEntry{FileSystemEntry: child, Favorite: favorites[child.ID]}
	}
	return utils.Success(c, fiber.StatusOK, out)
}

type renameFolderRequest struct {
	ExistingFolderPath string `json:"existingFolderPath"`
	NewName            string `json:"newName"`
}

func (h *FoldersHandler) Rename(c *fiber.Ctx) error {
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

	var req renameFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.Tree.RenameFolder(c.Context(), spaceID, req.ExistingFolderPath, req.NewName, currentUser.Email)
	if err != nil {
		return respondServiceError(c, err, "failed renaming folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.rename",
		ResourceType: "file_system_entry",
		ResourceID:   &entry.ID,
		Details: map[string]interface{}{
			"existing_path": req.ExistingFolderPath,
			"new_name":      entry.ItemName,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, entry)
}

func (h *FoldersHandler) Delete(c *fiber.Ctx) error {
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
	if _, err := h.Tree.DeleteFolder(c.Context(), spaceID, path, currentUser.Email); err != nil {
		return respondServiceError(c, err, "failed deleting folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.delete",
		ResourceType: "file_system_entry",
		Details: map[string]interface{}{
			"path": path,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FoldersHandler) DumpTree(c *fiber.Ctx) error {
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

	tree, _, err := h.Tree.DumpElementTree(c.Context(), spaceID, c.Query("path"))
	if err != nil {
		return respondServiceError(c, err, "failed dumping folder tree")
	}
	return utils.Success(c, fiber.StatusOK, tree)
}
