package domain

import "time"

// Role enumerates the kinds of platform accounts.
type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleContractor Role = "contractor"
	RoleOfficer    Role = "officer"
)

// OfficerClass is the three-tier municipal officer hierarchy. Class A has
// city-wide authority, class B acts at department level on any ticket,
// class C works ward-level and must be assigned.
type OfficerClass string

const (
	OfficerClassA OfficerClass = "class_a"
	OfficerClassB OfficerClass = "class_b"
	OfficerClassC OfficerClass = "class_c"
)

// User is the persisted account record for citizens, contractors and officers.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	OfficerClass OfficerClass // set only when Role == RoleOfficer
	WardID       string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AsActor projects the persisted record into the per-request actor identity.
func (u *User) AsActor() Actor {
	return Actor{
		ID:           u.ID,
		Role:         u.Role,
		OfficerClass: u.OfficerClass,
		WardID:       u.WardID,
	}
}
