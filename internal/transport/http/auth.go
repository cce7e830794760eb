package httptransport

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"chairbook/internal/domain"
	"chairbook/internal/service/appointments"
)

const ctxActor = "actor"

// Claims are the bearer token claims. Subject carries the actor id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for actor. ttl <= 0 issues a token
// without expiry.
func IssueToken(secret string, actor appointments.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  actor.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func parseToken(raw string, secret []byte) (appointments.Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return appointments.Actor{}, err
	}
	if claims.Subject == "" {
		return appointments.Actor{}, fmt.Errorf("token has no subject")
	}

	role := appointments.Role(claims.Role)
	switch role {
	case "":
		role = appointments.RoleClient
	case appointments.RoleClient, appointments.RoleStaff:
	default:
		return appointments.Actor{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return appointments.Actor{ID: claims.Subject, Role: role}, nil
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, domain.CodeUnauthorized, "authorization required")
			return
		}
		actor, err := parseToken(strings.TrimSpace(token), s.secret)
		if err != nil {
			s.log.Info("rejected token", "err", err)
			abort(c, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid token")
			return
		}
		c.Set(ctxActor, actor)
		c.Next()
	}
}

func requireRole(roles ...appointments.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, domain.CodeForbidden, "you do not have permission to do that")
	}
}

func actorFrom(c *gin.Context) appointments.Actor {
	v, _ := c.Get(ctxActor)
	actor, _ := v.(appointments.Actor)
	return actor
}
