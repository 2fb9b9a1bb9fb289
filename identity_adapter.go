package auth

import "github.com/google/uuid"

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// GivenName returns the user's first name.
func (u UserIdentity) GivenName() string {
	if u.user == nil {
		return ""
	}
	return u.user.FirstName
}

// FamilyName returns the user's last name.
func (u UserIdentity) FamilyName() string {
	if u.user == nil {
		return ""
	}
	return u.user.LastName
}

// Role returns the user's role as a string.
func (u UserIdentity) Role() string {
	if u.user == nil {
		return ""
	}
	return string(u.user.Role)
}

// FederatedID returns the provider subject id, if the account is linked.
func (u UserIdentity) FederatedID() string {
	if u.user == nil {
		return ""
	}
	return u.user.FederatedID
}

func newTokenID() string {
	return uuid.NewString()
}
