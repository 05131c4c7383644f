package services

import (
	"context"
	"errors"
	"strings"

	"github.com/airmencoders/tron-common-api-sub001/internal/apperrors"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const PathSeparator = "/"

// FilePathSpec describes a resolved node: its identity, its ancestor
// folder-id chain from the space root, and the flat object-store key
// prefix those ancestors produce. Derived fresh on every resolution and
// never cached, so renames are immediately visible.
type FilePathSpec struct {
	DocumentSpaceID uuid.UUID
	ItemID          uuid.UUID
	ItemName        string
	ParentFolderID  uuid.UUID
	IsFolder        bool
	FullPathSpec    string
	UUIDList        []uuid.UUID
}

// QualifiedPrefix is the object-store key prefix for children of this
// node: spaceID/ + folder-id chain joined by "/" + trailing separator.
func (s *FilePathSpec) QualifiedPrefix() string {
	var sb strings.Builder
	sb.WriteString(s.DocumentSpaceID.String())
	sb.WriteString(PathSeparator)
	for _, id := range s.UUIDList {
		if id == uuid.Nil {
			continue
		}
		sb.WriteString(id.String())
		sb.WriteString(PathSeparator)
	}
	return sb.String()
}

// ObjectKey is the fully qualified object-store key for a resolved
// file: the parent folder chain prefix plus the filename.
func (s *FilePathSpec) ObjectKey() string {
	return s.QualifiedPrefix() + s.ItemName
}

type PathResolver struct {
	DB *gorm.DB
}

func NewPathResolver(db *gorm.DB) *PathResolver {
	return &PathResolver{DB: db}
}

// SplitPathSegments breaks a human path into ordered segment names,
// discarding empty segments so "//a//b/" resolves the same as "a/b".
func SplitPathSegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, PathSeparator) {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}

// ResolveFolderPath walks path from the virtual root, requiring a
// folder entry at every hop. The root path ("" or "/") resolves to a
// sentinel spec whose ItemID is the nil UUID.
func (r *PathResolver) ResolveFolderPath(ctx context.Context, spaceID uuid.UUID, path string) (*FilePathSpec, error) {
	segments := SplitPathSegments(path)

	spec := &FilePathSpec{
		DocumentSpaceID: spaceID,
		ItemID:          models.NilParent,
		ItemName:        "",
		ParentFolderID:  models.NilParent,
		IsFolder:        true,
		FullPathSpec:    PathSeparator,
		UUIDList:        []uuid.UUID{},
	}

	currentParent := models.NilParent
	consumed := make([]string, 0, len(segments))

	for _, segment := range segments {
		var entry models.FileSystemEntry
		err := r.DB.WithContext(ctx).
			Where("document_space_id = ? AND parent_entry_id = ? AND item_name = ? AND is_folder = ?",
				spaceID, currentParent, segment, true).
			First(&entry).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("folder %q not found under /%s", segment, strings.Join(consumed, PathSeparator))
			}
			return nil, err
		}

		consumed = append(consumed, segment)
		spec.ParentFolderID = currentParent
		spec.ItemID = entry.ID
		spec.ItemName = entry.ItemName
		spec.UUIDList = append(spec.UUIDList, entry.ID)
		currentParent = entry.ID
	}

	if len(consumed) == 0 {
		// Root sentinel: not a persisted row, marked by the nil UUID.
		spec.UUIDList = []uuid.UUID{models.NilParent}
		return spec, nil
	}

	spec.FullPathSpec = PathSeparator + strings.Join(consumed, PathSeparator)
	return spec, nil
}

// ResolveFilePath resolves the folder chain one level above the final
// segment, then matches the final segment as a file sibling under that
// parent.
func (r *PathResolver) ResolveFilePath(ctx context.Context, spaceID uuid.UUID, path string) (*FilePathSpec, error) {
	segments := SplitPathSegments(path)
	if len(segments) == 0 {
		return nil, apperrors.NotFound("a file path must name a file")
	}

	parentPath := strings.Join(segments[:len(segments)-1], PathSeparator)
	filename := segments[len(segments)-1]

	parentSpec, err := r.ResolveFolderPath(ctx, spaceID, parentPath)
	if err != nil {
		return nil, err
	}

	return r.ResolveFileInFolder(ctx, parentSpec, filename)
}

// ResolveFileInFolder locates a file by name directly under an already
// resolved parent folder.
func (r *PathResolver) ResolveFileInFolder(ctx context.Context, parentSpec *FilePathSpec, filename string) (*FilePathSpec, error) {
	var entry models.FileSystemEntry
	err := r.DB.WithContext(ctx).
		Where("document_space_id = ? AND parent_entry_id = ? AND item_name = ? AND is_folder = ?",
			parentSpec.DocumentSpaceID, parentSpec.ItemID, filename, false).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("file %q not found under %s", filename, parentSpec.FullPathSpec)
		}
		return nil, err
	}

	fullPath := parentSpec.FullPathSpec
	if fullPath == PathSeparator {
		fullPath = ""
	}

	return &FilePathSpec{
		DocumentSpaceID: parentSpec.DocumentSpaceID,
		ItemID:          entry.ID,
		ItemName:        entry.ItemName,
		ParentFolderID:  parentSpec.ItemID,
		IsFolder:        false,
		FullPathSpec:    fullPath + PathSeparator + entry.ItemName,
		UUIDList:        append([]uuid.UUID{}, parentSpec.UUIDList...),
	}, nil
}
