package domain

// User is the public snapshot of an account, as shown in a contact list.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Email string `json:"email"`
}
