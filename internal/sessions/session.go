package sessions

import "time"

// Session is a refresh session for one signed-in user. The refresh token is
// the lookup key.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id,omitempty"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	UserID       string    `bson:"userId" json:"userId"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
