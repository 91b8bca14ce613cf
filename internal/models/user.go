package models

import "time"

type User struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	ProfilePhotoURL *string   `json:"profilePhotoUrl,omitempty"`
	CreatedAt       time.Time `json:"-"`
}

// Profile is the public view of a user. ProfilePhotoURL is omitted when unset.
type Profile struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfilePhotoURL string `json:"profilePhotoUrl,omitempty"`
}

// Profile returns the public view of u.
func (u *User) Profile() *Profile {
	p := &Profile{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.ProfilePhotoURL != nil {
		p.ProfilePhotoURL = *u.ProfilePhotoURL
	}
	return p
}
