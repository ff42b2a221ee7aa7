package models

// Request DTOs. Pointer fields distinguish "absent" from "empty" so the same
// struct serves POST, PUT and PATCH.

type EventRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Activity    []uint         `json:"activity"`
	Datetime    *string        `json:"datetime"`
	Duration    *int           `json:"duration"`
	Location    *LocationInput `json:"location" binding:"omitempty"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

type RegisterRequest struct {
	Username    string  `json:"username" binding:"required,max=150,username_chars"`
	Email       string  `json:"email" binding:"required,email,max=254"`
	Password    string  `json:"password" binding:"required,min=8,max=128"`
	FirstName   string  `json:"first_name" binding:"required,max=150"`
	LastName    string  `json:"last_name" binding:"required,max=150"`
	PhoneNumber string  `json:"phone_number" binding:"required,max=32"`
	Photo       *string `json:"photo" binding:"omitempty,max=500"`
	BirthYear   *int    `json:"birth_year"`
	Bio         *string `json:"bio"`
}

type ProfileRequest struct {
	Username    *string `json:"username" binding:"omitempty,max=150,username_chars"`
	FirstName   *string `json:"first_name" binding:"omitempty,max=150"`
	LastName    *string `json:"last_name" binding:"omitempty,max=150"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=32"`
	Photo       *string `json:"photo" binding:"omitempty,max=500"`
	BirthYear   *int    `json:"birth_year"`
	Bio         *string `json:"bio"`
	Activities  *[]uint `json:"activities"`
}

type ActivationRequest struct {
	UID   uint   `json:"uid" binding:"required"`
	Token string `json:"token" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}
