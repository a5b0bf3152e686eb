package identity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorContextKey = "identity.actor"

// Claims is the JWT payload issued by the identity provider. Session
// handling itself is external; this middleware only validates and hydrates.
type Claims struct {
	Name          string `json:"name"`
	DivisionID    string `json:"division_id"`
	SubdivisionID string `json:"subdivision_id"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer token and stores the Actor on the gin
// context for downstream handlers. When issuer is non-empty the token's iss
// claim must match it.
func Middleware(secret, issuer string) gin.HandlerFunc {
	var opts []jwt.ParserOption
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, opts...)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed identity claims"})
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func actorFromClaims(claims *Claims) (Actor, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("parse subject: %w", err)
	}
	divisionID, err := uuid.Parse(claims.DivisionID)
	if err != nil {
		return Actor{}, fmt.Errorf("parse division_id: %w", err)
	}
	subdivisionID, err := uuid.Parse(claims.SubdivisionID)
	if err != nil {
		return Actor{}, fmt.Errorf("parse subdivision_id: %w", err)
	}
	return Actor{
		ID:            userID,
		Name:          claims.Name,
		DivisionID:    divisionID,
		SubdivisionID: subdivisionID,
	}, nil
}

// ActorFromContext returns the authenticated Actor set by Middleware.
func ActorFromContext(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}
