package models

import "time"

const DefaultDisplayName = "User"

// User is the persisted profile of a signed-in account, keyed by the identity
// provider subject.
type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Sub       string    `bson:"sub" json:"sub"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	Picture   string    `bson:"picture,omitempty" json:"picture,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DisplayName falls back to a generic label when the provider sent no name.
func (u *User) DisplayName() string {
	if u.Name == "" {
		return DefaultDisplayName
	}
	return u.Name
}
