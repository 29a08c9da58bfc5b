// Package auth is the identity collaborator seen by the workspace: who is
// signed in, what their profile looks like, and how to sign them out.
package auth

import (
	"context"

	"github.com/docsummarizer/go-services/internal/models"
)

type Profile struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Identity is passed explicitly into every store and controller. The zero
// value means nobody is signed in.
type Identity struct {
	UserID  string  `json:"userId"`
	Profile Profile `json:"profile"`
}

func (i Identity) SignedIn() bool { return i.UserID != "" }

// FromClaims maps verified token claims to an Identity.
func FromClaims(claims map[string]interface{}) Identity {
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	picture, _ := claims["picture"].(string)
	if name == "" {
		name = models.DefaultDisplayName
	}
	return Identity{UserID: sub, Profile: Profile{DisplayName: name, Email: email, PhotoURL: picture}}
}

func FromUser(u *models.User) Identity {
	return Identity{
		UserID:  u.Sub,
		Profile: Profile{DisplayName: u.DisplayName(), Email: u.Email, PhotoURL: u.Picture},
	}
}

// Credentials are the tokens presented with the current request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

type credentialsKey struct{}

func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, c)
}

func CredentialsFrom(ctx context.Context) (Credentials, bool) {
	c, ok := ctx.Value(credentialsKey{}).(Credentials)
	return c, ok
}
