package users

import "errors"

var (
	// ErrUserExists is returned when registering a mobile number twice
	ErrUserExists = errors.New("User already exists")

	// ErrInvalidCredentials is returned for unknown mobiles and wrong passwords
	ErrInvalidCredentials = errors.New("Invalid credentials")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("User not found")

	ErrInvalidName     = errors.New("name is required")
	ErrInvalidMobile   = errors.New("mobile is required")
	ErrInvalidPassword = errors.New("password must be at least 6 characters")
	ErrInvalidLanguage = errors.New("language is required")
)
