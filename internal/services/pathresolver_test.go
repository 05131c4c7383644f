package services

import (
	"context"
	"testing"

	"github.com/airmencoders/tron-common-api-sub001/internal/apperrors"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPathSegments(t *testing.T) {
	assert.Nil(t, SplitPathSegments(""))
	assert.Nil(t, SplitPathSegments("/"))
	assert.Equal(t, []string{"a", "b"}, SplitPathSegments("a/b"))
	assert.Equal(t, []string{"a", "b"}, SplitPathSegments("//a//b/"))
	assert.Equal(t, []string{"a", "b"}, SplitPathSegments(" /a / b/ "))
}

func TestResolveFolderPathRoot(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	for _, path := range []string{"", "/", "//"} {
		spec, err := fx.resolver.ResolveFolderPath(ctx, fx.space.ID, path)
		require.NoError(t, err, "path %q", path)
		assert.Equal(t, models.NilParent, spec.ItemID)
		assert.True(t, spec.IsFolder)
		assert.Equal(t, "/", spec.FullPathSpec)
		assert.Equal(t, fx.space.ID.String()+"/", spec.QualifiedPrefix())
	}
}

func TestResolveFolderPathChain(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	reports, err := fx.tree.AddFolder(ctx, fx.space.ID, "", "reports", "tester")
	require.NoError(t, err)
	year, err := fx.tree.AddFolder(ctx, fx.space.ID, "reports", "2023", "tester")
	require.NoError(t, err)

	spec, err := fx.resolver.ResolveFolderPath(ctx, fx.space.ID, "/reports/2023")
	require.NoError(t, err)

	assert.Equal(t, year.ID, spec.ItemID)
	assert.Equal(t, "2023", spec.ItemName)
	assert.Equal(t, reports.ID, spec.ParentFolderID)
	assert.Equal(t, "/reports/2023", spec.FullPathSpec)
	assert.Equal(t, []uuid.UUID{reports.ID, year.ID}, spec.UUIDList)
	assert.Equal(t,
		fx.space.ID.String()+"/"+reports.ID.String()+"/"+year.ID.String()+"/",
		spec.QualifiedPrefix())
}

func TestResolveFolderPathMissingSegment(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	_, err := fx.tree.AddFolder(ctx, fx.space.ID, "", "reports", "tester")
	require.NoError(t, err)

	_, err = fx.resolver.ResolveFolderPath(ctx, fx.space.ID, "reports/missing/deep")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), `"missing"`)
	assert.Contains(t, err.Error(), "/reports")
}

func TestResolveFolderPathRejectsFileSegment(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	uploadTestFile(t, fx, "", "notes.txt", "hello")

	// A file never satisfies a folder hop, even with a matching name.
	_, err := fx.resolver.ResolveFolderPath(ctx, fx.space.ID, "notes.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestResolveFilePath(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	reports, err := fx.tree.AddFolder(ctx, fx.space.ID, "", "reports", "tester")
	require.NoError(t, err)
	entry := uploadTestFile(t, fx, "reports", "jan.pdf", "pdf-bytes")

	spec, err := fx.resolver.ResolveFilePath(ctx, fx.space.ID, "reports/jan.pdf")
	require.NoError(t, err)

	assert.Equal(t, entry.ID, spec.ItemID)
	assert.False(t, spec.IsFolder)
	assert.Equal(t, reports.ID, spec.ParentFolderID)
	assert.Equal(t, "/reports/jan.pdf", spec.FullPathSpec)
	assert.Equal(t,
		fx.space.ID.String()+"/"+reports.ID.String()+"/jan.pdf",
		spec.ObjectKey())
}

func TestResolveFilePathRootFile(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	entry := uploadTestFile(t, fx, "", "readme.md", "root file")

	spec, err := fx.resolver.ResolveFilePath(ctx, fx.space.ID, "readme.md")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, spec.ItemID)
	assert.Equal(t, "/readme.md", spec.FullPathSpec)
	assert.Equal(t, fx.space.ID.String()+"/readme.md", spec.ObjectKey())
}

func TestResolveFilePathErrors(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	_, err := fx.tree.AddFolder(ctx, fx.space.ID, "", "reports", "tester")
	require.NoError(t, err)

	t.Run("empty path", func(t *testing.T) {
		_, err := fx.resolver.ResolveFilePath(ctx, fx.space.ID, "/")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("folder where file expected", func(t *testing.T) {
		_, err := fx.resolver.ResolveFilePath(ctx, fx.space.ID, "reports")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := fx.resolver.ResolveFilePath(ctx, fx.space.ID, "reports/ghost.pdf")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestResolutionScopedToSpace(t *testing.T) {
	fx := newTestFixture(t)
	ctx := context.Background()

	otherSpace := models.DocumentSpace{Name: "other-space"}
	require.NoError(t, fx.db.Create(&otherSpace).Error)

	_, err := fx.tree.AddFolder(ctx, fx.space.ID, "", "shared-name", "tester")
	require.NoError(t, err)

	_, err = fx.resolver.ResolveFolderPath(ctx, otherSpace.ID, "shared-name")
	assert.True(t, apperrors.IsNotFound(err))
}
