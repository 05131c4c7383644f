package services

import (
	"context"
	"errors"

	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessService answers space-level privilege questions. Dashboard
// admins implicitly hold every privilege in every space.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

func (a *AccessService) membership(ctx context.Context, userID, spaceID uuid.UUID) (*models.DocumentSpaceMember, error) {
	var member models.DocumentSpaceMember
	err := a.DB.WithContext(ctx).
		Where("document_space_id = ? AND dashboard_user_id = ?", spaceID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (a *AccessService) HasReadAccess(ctx context.Context, user *models.DashboardUser, spaceID uuid.UUID) bool {
	if user == nil {
		return false
	}
	if user.Role == models.UserRoleAdmin {
		return true
	}
	member, err := a.membership(ctx, user.ID, spaceID)
	if err != nil || member == nil {
		return false
	}
	return member.CanRead || member.CanWrite || member.CanManage
}

func (a *AccessService) HasWriteAccess(ctx context.Context, user *models.DashboardUser, spaceID uuid.UUID) bool {
	if user == nil {
		return false
	}
	if user.Role == models.UserRoleAdmin {
		return true
	}
	member, err := a.membership(ctx, user.ID, spaceID)
	if err != nil || member == nil {
		return false
	}
	return member.CanWrite || member.CanManage
}

func (a *AccessService) HasMembershipAccess(ctx context.Context, user *models.DashboardUser, spaceID uuid.UUID) bool {
	if user == nil {
		return false
	}
	if user.Role == models.UserRoleAdmin {
		return true
	}
	member, err := a.membership(ctx, user.ID, spaceID)
	if err != nil || member == nil {
		return false
	}
	return member.CanManage
}

// Grant creates or updates a membership with the given privileges.
func (a *AccessService) Grant(ctx context.Context, spaceID, userID uuid.UUID, canRead, canWrite, canManage bool, actor string) error {
	member := models.DocumentSpaceMember{
		DocumentSpaceID: spaceID,
		DashboardUserID: userID,
		CanRead:         canRead,
		CanWrite:        canWrite,
		CanManage:       canManage,
	}
	member.CreatedBy = actor
	member.LastModifiedBy = actor

	return a.DB.WithContext(ctx).
		Where("document_space_id = ? AND dashboard_user_id = ?", spaceID, userID).
		Assign(map[string]interface{}{
			"can_read":         canRead,
			"can_write":        canWrite,
			"can_manage":       canManage,
			"last_modified_by": actor,
		}).
		FirstOrCreate(&member).Error
}

// Revoke removes a user's membership from a space entirely.
func (a *AccessService) Revoke(ctx context.Context, spaceID, userID uuid.UUID) error {
	return a.DB.WithContext(ctx).
		Delete(&models.DocumentSpaceMember{}, "document_space_id = ? AND dashboard_user_id = ?", spaceID, userID).Error
}

// ReadableSpaceIDs lists the spaces a user can at least read.
func (a *AccessService) ReadableSpaceIDs(ctx context.Context, user *models.DashboardUser) ([]uuid.UUID, error) {
	if user == nil {
		return nil, nil
	}
	if user.Role == models.UserRoleAdmin {
		var ids []uuid.UUID
		err := a.DB.WithContext(ctx).Model(&models.DocumentSpace{}).Pluck("id", &ids).Error
		return ids, err
	}

	var ids []uuid.UUID
	err := a.DB.WithContext(ctx).Model(&models.DocumentSpaceMember{}).
		Where("dashboard_user_id = ?", user.ID).
		Where("can_read OR can_write OR can_manage").
		Pluck("document_space_id", &ids).Error
	return ids, err
}
