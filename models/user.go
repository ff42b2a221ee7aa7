// File: /models/user.go
package models

import (
	"time"
)

type User struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Username          string     `json:"username" gorm:"not null;size:150;uniqueIndex:idx_users_username;uniqueIndex:unique_user,priority:1"`
	Email             string     `json:"email" gorm:"not null;size:254;uniqueIndex:idx_users_email;uniqueIndex:unique_user,priority:2"`
	PhoneNumber       string     `json:"phone_number" gorm:"not null;size:32;uniqueIndex:idx_users_phone;uniqueIndex:unique_user,priority:3"`
	FirstName         string     `json:"first_name" gorm:"not null;size:150"`
	LastName          string     `json:"last_name" gorm:"not null;size:150"`
	Password          string     `json:"-" gorm:"not null;size:255"`
	Photo             *string    `json:"photo" gorm:"size:500"`
	BirthYear         *int       `json:"birth_year"`
	Bio               *string    `json:"bio" gorm:"type:text"`
	IsStaff           bool       `json:"-" gorm:"default:false"`
	IsActive          bool       `json:"-" gorm:"default:false"`
	ActivationToken   *string    `json:"-" gorm:"size:64;index"`
	ActivationExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         time.Time  `json:"-"`

	Activities []Activity `json:"-" gorm:"many2many:favorite_activities;joinForeignKey:UserID;joinReferences:ActivityID"`
}

// Subscribe records that User follows Author.
type Subscribe struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:unique_subscribe"`
	AuthorID  uint      `json:"author_id" gorm:"not null;uniqueIndex:unique_subscribe;index"`
	CreatedAt time.Time `json:"created_at"`

	User   User `json:"-" gorm:"foreignKey:UserID"`
	Author User `json:"-" gorm:"foreignKey:AuthorID"`
}

// FavoriteActivity is the join row behind User.Activities.
type FavoriteActivity struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	UserID     uint `json:"user_id" gorm:"not null;uniqueIndex:unique_activity_for_user"`
	ActivityID uint `json:"activity_id" gorm:"not null;uniqueIndex:unique_activity_for_user;index"`
}

func (FavoriteActivity) TableName() string {
	return "favorite_activities"
}

// Age returns the age implied by BirthYear in the given year, if known.
func (u *User) Age(currentYear int) *int {
	if u.BirthYear == nil {
		return nil
	}
	age := currentYear - *u.BirthYear
	return &age
}
