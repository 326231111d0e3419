package identity

import (
	"errors"
	"time"
)

const (
	// RoleUser is the default role.
	RoleUser = "user"
	// RoleAdmin may inspect every wallet and transaction.
	RoleAdmin = "admin"
)

var (
	// ErrUserExists is returned when username or email is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistration reports a malformed registration request.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// User represents a registered wallet owner.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	Role         string
	TokenVersion int
	CreatedAt    time.Time
}

// Profile is the public view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile strips credentials from u.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Registration is the input to Service.Register.
type Registration struct {
	Username string
	Email    string
	Password string
}
