package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/models"
)

// UserRepository handles database operations for User entities
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create creates a new user record
func (r *UserRepository) Create(user *models.User) error {
	if err := r.DB.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.DB.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by username %s: %w", username, err)
	}
	return &user, nil
}

// ListAll retrieves all users
func (r *UserRepository) ListAll() ([]models.User, error) {
	var users []models.User
	err := r.DB.Order("username ASC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Delete removes a user by their ID
func (r *UserRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// EnsureAdminUser creates the bootstrap administrator when no users exist yet
func (r *UserRepository) EnsureAdminUser(username, password string) error {
	var count int64
	if err := r.DB.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin := models.User{Username: username, IsAdmin: true}
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}
	if err := r.DB.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	return nil
}
