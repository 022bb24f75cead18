package models

// User is the identity record supplied by the external identity provider.
// The organization core references users and never mutates them.
type User struct {
	BaseModel

	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"uniqueIndex;size:320;not null" json:"email"`
}
