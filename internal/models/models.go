// Package models holds the request and response shapes of the HTTP API
// together with a few shared constants.
package models

import "github.com/patric-chuzhbe/userauth/internal/user"

// RegisterRequest is the JSON body for POST /api/register.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required"`
	FirstName       string `json:"firstName" validate:"required"`
	ImageURL        string `json:"imageUrl" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Response is the envelope of every /api response.
type Response struct {
	OK      bool       `json:"ok"`
	Message string     `json:"message,omitempty"`
	User    *user.View `json:"user,omitempty"`
}

// StatsResponse is returned by the internal stats endpoint.
type StatsResponse struct {
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// HealthMessage is the message of a successful health check.
const HealthMessage = "API is running"

// RegisteredMessage is the message of a successful registration.
const RegisteredMessage = "registered successfully"
