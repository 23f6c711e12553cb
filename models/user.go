package models

// User is the (simulated) signed-in user of a session.
type User struct {
	ID          string  `json:"uid"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	PhotoRef    *string `json:"photo_url"`
}

// Name returns the display name used when the user signs a report.
func (u *User) Name() string {
	if u.DisplayName == "" {
		return "Anonymous"
	}
	return u.DisplayName
}

// MockUser is the user every simulated login signs in as.
func MockUser() User {
	photo := "https://picsum.photos/id/237/100/100"
	return User{
		ID:          "12345abcde",
		DisplayName: "Marc Ewin",
		Email:       "marc.ewin@example.com",
		PhotoRef:    &photo,
	}
}
