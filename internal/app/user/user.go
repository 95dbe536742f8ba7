/*
Package user holds the identity of a chat participant as stored in the users table.
*/
package user

import "time"

// User is a registered participant. Sessions are issued elsewhere; the chat
// server only reads these rows.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email,omitempty"`
	FirstName       string    `json:"firstName,omitempty"`
	LastName        string    `json:"lastName,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	Role            string    `json:"role"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DisplayName returns the first name, or "there" when it is unknown.
func (u User) DisplayName() string {
	if u.FirstName == "" {
		return "there"
	}
	return u.FirstName
}
