package database

import (
	"fmt"

	"github.com/airmencoders/tron-common-api-sub001/internal/config"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DashboardUser{},
		&models.DocumentSpace{},
		&models.DocumentSpaceMember{},
		&models.FileSystemEntry{},
		&models.DocumentSpaceUserCollection{},
		&models.CollectionEntry{},
		&models.FileSystemEntryMetadata{},
		&models.AuditLog{},
	)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.DashboardUser{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.DashboardUser{
		Email:        "admin@documentspace.local",
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Admin",
		Role:         models.UserRoleAdmin,
	}

	return db.Create(&admin).Error
}
