// Package user defines the user record persisted by the record stores
// and the sanitized view of it that is handed back to clients.
package user

// User is the durable representation of one registered user.
// A record is created once, at registration, and never mutated.
type User struct {
	// Username is the unique, case-sensitive identifier of the user.
	Username string `json:"username"`

	// FirstName is the display name.
	FirstName string `json:"firstName"`

	// ImageURL is an opaque reference to the avatar resource.
	ImageURL string `json:"imageUrl"`

	// PasswordHash is the salted one-way hash of the user's password.
	PasswordHash string `json:"passwordHash"`
}

// View is the part of a User that is safe to return to a client.
type View struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	ImageURL  string `json:"imageUrl"`
}

// View returns the sanitized projection of the record, without the password hash.
func (u *User) View() *View {
	return &View{
		Username:  u.Username,
		FirstName: u.FirstName,
		ImageURL:  u.ImageURL,
	}
}
