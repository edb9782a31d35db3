package domain

import "time"

// UserRole enumerates the roles a principal can hold.
type UserRole string

const (
	RoleCitizen                UserRole = "citizen"
	RolePublicRelationsOfficer UserRole = "public_relations_officer"
	RoleTechnicalOfficer       UserRole = "technical_officer"
	RoleQueueOfficer           UserRole = "queue_officer"
	RoleExternalMaintainer     UserRole = "external_maintainer"
	RoleAdmin                  UserRole = "admin"
)

// User is any authenticated principal: citizen, municipal staff or external maintainer.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
