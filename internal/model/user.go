package model

import "time"

// Role values stored in the users.role column and embedded in JWT claims.
const (
    RoleAttendee  = "ATTENDEE"
    RoleOrganizer = "ORGANIZER"
    RoleAdmin     = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. The json tags are omitted because these structs
// are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name shown to door staff at check-in.
//  Email        – unique, lower-cased login address.
//  PasswordHash – bcrypt hash of the password.
//  Role         – one of the Role* constants.
//  IsActive     – soft-disable flag; inactive users cannot log in.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type User struct {
    ID           uint64    // users.id
    Name         string    // users.name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
