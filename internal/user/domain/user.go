package domain

import "time"

type ID string

// UserType is the registration discriminator. Each type maps to exactly one role.
type UserType string

const (
	TypeStudent    UserType = "Student"
	TypeInstructor UserType = "Instructor"
)

const (
	RoleStudent    = "Student"
	RoleInstructor = "Instructor"
)

func ParseUserType(value string) (UserType, bool) {
	switch UserType(value) {
	case TypeStudent:
		return TypeStudent, true
	case TypeInstructor:
		return TypeInstructor, true
	default:
		return "", false
	}
}

func (t UserType) Role() string {
	switch t {
	case TypeInstructor:
		return RoleInstructor
	default:
		return RoleStudent
	}
}

type Claim struct {
	Type  string
	Value string
}

type User struct {
	ID             ID
	Username       string
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	Type           UserType
	RefreshTokens  []RefreshToken
	// Version is bumped by every refresh token write and guards against lost updates.
	Version   int64
	CreatedAt time.Time
}
