package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"supportdesk/backend/internal/models"
	"time"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Claims carries the caller identity. The subject is the participant id.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies identity tokens.
type Authenticator struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// NewAuthenticator creates an HS256 authenticator.
func NewAuthenticator(secret, issuer string, ttl time.Duration) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Issuer: issuer, TTL: ttl}
}

// Sign issues a token for identity.
func (a *Authenticator) Sign(identity models.Identity) (string, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", errors.New("identity has no id")
	}
	now := time.Now()
	claims := Claims{
		Name:   identity.Name,
		Email:  identity.Email,
		Avatar: identity.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    a.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// Parse verifies token and returns the identity it carries.
func (a *Authenticator) Parse(token string) (models.Identity, error) {
	var claims Claims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.Issuer))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.Secret, nil
	}, opts...)
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return models.Identity{}, errors.New("invalid token: no subject")
	}
	return models.Identity{
		ID:     claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Avatar: claims.Avatar,
	}, nil
}

// Identify rejects requests without a valid bearer token and stores the
// caller identity in the context.
func (a *Authenticator) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		identity, err := a.Parse(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func callerIdentity(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Identity{}
}
