package models

import (
	"time"
)

type User struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Username    string     `json:"username" gorm:"size:30;uniqueIndex;not null"`
	Email       string     `json:"email" gorm:"uniqueIndex;not null"`
	Name        string     `json:"name" gorm:"not null"`
	Password    string     `json:"-" gorm:"not null"`
	Bio         *string    `json:"bio"`
	ProfilePic  *string    `json:"profilePic"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Gender      *string    `json:"gender"`
	Deleted     bool       `json:"-" gorm:"not null;default:false;index"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// UserDto is the public summary embedded in posts, comments, follows and notifications
type UserDto struct {
	ID         uint    `json:"id"`
	Username   string  `json:"username"`
	Name       string  `json:"name"`
	ProfilePic *string `json:"profilePic"`
}

// AccountDto is what the owner of an account sees about themselves
type AccountDto struct {
	ID         uint    `json:"id"`
	Username   string  `json:"username"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Bio        *string `json:"bio"`
	ProfilePic *string `json:"profilePic"`
}

// ProfileDto is the public profile of a user
type ProfileDto struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	ProfilePic *string   `json:"profilePic"`
	Bio        *string   `json:"bio"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (u User) Summary() UserDto {
	return UserDto{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		ProfilePic: u.ProfilePic,
	}
}

func (u User) Account() AccountDto {
	return AccountDto{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		Email:      u.Email,
		Bio:        u.Bio,
		ProfilePic: u.ProfilePic,
	}
}

func (u User) Profile() ProfileDto {
	return ProfileDto{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		ProfilePic: u.ProfilePic,
		Bio:        u.Bio,
		CreatedAt:  u.CreatedAt,
	}
}
