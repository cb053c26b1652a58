package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole is the account type of a user.
type UserRole string

const (
	RoleEndUser UserRole = "End User"
	RoleBroker  UserRole = "Broker"
	RoleCompany UserRole = "Company"
	RoleAdmin   UserRole = "Admin"
)

// Subscription holds the billing fields the user directory exposes for updates.
type Subscription struct {
	Plan      string     `bson:"plan,omitempty" json:"plan,omitempty"`
	Credits   int        `bson:"credits" json:"credits"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// User represents an account in the marketplace.
type User struct {
	Base         `bson:",inline"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email" json:"email"`
	Phone        string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Photo        string              `bson:"image,omitempty" json:"image,omitempty"`
	PasswordHash string              `bson:"password" json:"-"`
	Role         UserRole            `bson:"role" json:"role"`
	Company      *primitive.ObjectID `bson:"company,omitempty" json:"company,omitempty"` // owning company account, if any
	Subscription *Subscription       `bson:"subscription,omitempty" json:"subscription,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
	Deleted      bool                `bson:"deleted" json:"-"`
}

// CompanyID returns the company the user acts for: its own id for company
// accounts, otherwise the company it belongs to (zero if none).
func (u *User) CompanyID() primitive.ObjectID {
	if u.Role == RoleCompany {
		return u.ID
	}
	if u.Company != nil {
		return *u.Company
	}
	return primitive.NilObjectID
}

// BelongsToCompany reports whether the user is the company account itself or one of its members.
func (u *User) BelongsToCompany(companyID primitive.ObjectID) bool {
	if companyID.IsZero() {
		return false
	}
	return u.ID == companyID || (u.Company != nil && *u.Company == companyID)
}
