package lib

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/odling/odling-api/src/models"
)

// AutoMigrate runs all database migrations
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.FollowRequest{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database migration completed!")
	return nil
}
