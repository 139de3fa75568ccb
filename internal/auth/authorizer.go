package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

// Authorizer is the yes/no admission gate evaluated before a connection may
// touch any room state. Everything about identity beyond that verdict lives
// outside this service.
type Authorizer interface {
	Authorize(r *http.Request) error
}

type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Authorize(*http.Request) error {
	return nil
}

// StaticTokenAuthorizer accepts a single shared token, supplied either as a
// `token` query parameter or an `Authorization: Bearer` header.
type StaticTokenAuthorizer struct {
	Token string
}

func (a StaticTokenAuthorizer) Authorize(r *http.Request) error {
	presented := r.URL.Query().Get("token")
	if presented == "" {
		header := r.Header.Get("Authorization")
		presented = strings.TrimPrefix(header, "Bearer ")
	}
	if presented == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.Token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FromConfig builds the authorizer for the configured mode: "none" admits
// every connection, "token" requires the configured shared token.
func FromConfig(mode, token string) (Authorizer, error) {
	switch mode {
	case "", "none":
		return AllowAllAuthorizer{}, nil
	case "token":
		if token == "" {
			return nil, errors.New("auth mode token requires a token")
		}
		return StaticTokenAuthorizer{Token: token}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}
