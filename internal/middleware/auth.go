package middleware

import (
	"context"
	"net/http"
	"strings"

	"storekeep/internal/apierror"
	"storekeep/internal/policy"
	"storekeep/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	sessionKey = "session"
	tokenKey   = "session_token"
	userIDKey  = "user_id"
)

// SessionResolver turns a bearer or cookie token into a live session.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*session.Session, error)
}

// Authenticate attaches the caller's session when a valid token is presented.
// Anonymous requests pass through; RequireAuth enforces authentication per route.
func Authenticate(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}
		c.Set(tokenKey, token)

		sess, err := resolver.CurrentSession(c.Request.Context(), token)
		if err != nil {
			if apierror.KindOf(err) != apierror.KindUnauthenticated {
				log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("session lookup failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("internal server error"))
				return
			}
			c.Next()
			return
		}

		c.Set(sessionKey, sess)
		c.Set(userIDKey, sess.UserID)
		c.Next()
	}
}

// RequireAuth rejects requests without a session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.ErrUnauthenticated.Msg))
			return
		}
		c.Next()
	}
}

// RequireStaff rejects callers that may not use the admin surface.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.Authorize(Actor(c), policy.ViewAdmin, policy.Target{}); err != nil {
			c.AbortWithStatusJSON(apierror.KindOf(err).Status(), apierror.New(apierror.Message(err)))
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session attached by Authenticate, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// Actor returns the policy identity of the caller; anonymous callers get the zero Actor.
func Actor(c *gin.Context) policy.Actor {
	return CurrentSession(c).Actor()
}

// Token returns the raw session token presented with the request.
func Token(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func extractToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return v
		}
	}
	return ""
}
