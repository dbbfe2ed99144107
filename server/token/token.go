// Package token issues and checks the JWTs that grant access to a single
// rewriting session.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dekarrin/pastprint/server/dao"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the issuer of every token.
const Issuer = "pps"

// Lifetime is how long a token is valid after it is issued.
const Lifetime = 24 * time.Hour

// Generate creates a signed token for the given session.
func Generate(secret []byte, s dao.Session) (string, error) {
	claims := &jwt.MapClaims{
		"iss": Issuer,
		"exp": time.Now().Add(Lifetime).Unix(),
		"sub": s.ID.String(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	tokStr, err := tok.SignedString(signingKey(secret, s))
	if err != nil {
		return "", err
	}
	return tokStr, nil
}

// Get extracts the token from the Authorization header of req.
func Get(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))

	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	authParts := strings.SplitN(authHeader, " ", 2)
	if len(authParts) != 2 {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	scheme := strings.TrimSpace(strings.ToLower(authParts[0]))
	token := strings.TrimSpace(authParts[1])

	if scheme != "bearer" {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return token, nil
}

// Validate checks tok and returns the session it was issued for. A token
// stops being valid once its session is deleted.
func Validate(ctx context.Context, tok string, secret []byte, db dao.SessionRepository) (dao.Session, error) {
	var sesh dao.Session

	_, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		subj, err := t.Claims.GetSubject()
		if err != nil {
			return nil, fmt.Errorf("cannot get subject: %w", err)
		}

		id, err := uuid.Parse(subj)
		if err != nil {
			return nil, fmt.Errorf("cannot parse subject UUID: %w", err)
		}

		sesh, err = db.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return nil, fmt.Errorf("subject does not exist")
			}
			return nil, fmt.Errorf("subject could not be validated")
		}

		return signingKey(secret, sesh), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer(Issuer), jwt.WithLeeway(time.Minute))

	if err != nil {
		return dao.Session{}, err
	}

	return sesh, nil
}

// signingKey mixes the creation time of s into the secret.
func signingKey(secret []byte, s dao.Session) []byte {
	var key []byte
	key = append(key, secret...)
	key = append(key, []byte(fmt.Sprintf("%d", s.Created.UnixNano()))...)
	return key
}
