package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docsummarizer/go-services/pkg/logger"
	"golang.org/x/oauth2"
)

// TokenSet is what the login flow needs from the token endpoint.
type TokenSet struct {
	AccessToken string
	IDToken     string
}

// KeycloakClient talks to the realm token endpoint. Client authentication
// style (Basic header or form secret) is probed on first use.
type KeycloakClient struct {
	conf   oauth2.Config
	client *http.Client
}

// NewKeycloakClient builds a client for the realm issuer, e.g.
// http://keycloak:8080/realms/docs.
func NewKeycloakClient(issuer, clientID, clientSecret string) *KeycloakClient {
	base := strings.TrimRight(issuer, "/") + "/protocol/openid-connect"
	return &KeycloakClient{
		conf: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/auth",
				TokenURL:  base + "/token",
				AuthStyle: oauth2.AuthStyleAutoDetect,
			},
			Scopes: []string{"openid", "profile", "email"},
		},
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// PasswordToken runs the resource-owner password grant (dev/testing).
func (k *KeycloakClient) PasswordToken(ctx context.Context, username, password string) (*TokenSet, error) {
	tok, err := k.conf.PasswordCredentialsToken(k.httpContext(ctx), username, password)
	if err != nil {
		return nil, fmt.Errorf("password grant: %w", err)
	}
	return tokenSet(tok)
}

// ExchangeCode trades an authorization code. Keycloak occasionally answers
// "Code not valid" for a code that is still fresh; that case is retried once.
func (k *KeycloakClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	conf := k.conf
	conf.RedirectURL = redirectURI
	logger.Debugf("auth-code exchange: token_url=%s client_id=%s code_len=%d redirect_uri=%s",
		conf.Endpoint.TokenURL, conf.ClientID, len(code), redirectURI)

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		tok, err := conf.Exchange(k.httpContext(ctx), code)
		if err == nil {
			return tokenSet(tok)
		}
		lastErr = err
		if attempt == 1 && codeNotValid(err) {
			logger.Warnf("auth-code exchange: code rejected, retrying once")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(150 * time.Millisecond):
			}
			continue
		}
		break
	}
	return nil, fmt.Errorf("code exchange: %w", lastErr)
}

func (k *KeycloakClient) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, k.client)
}

func codeNotValid(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil || re.Response.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(re.ErrorDescription, "Code not valid") || strings.Contains(string(re.Body), "Code not valid")
}

func tokenSet(tok *oauth2.Token) (*TokenSet, error) {
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("token response has no id_token")
	}
	return &TokenSet{AccessToken: tok.AccessToken, IDToken: idToken}, nil
}
