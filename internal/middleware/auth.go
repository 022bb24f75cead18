package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/tenancy/internal/auditctx"
	iauth "github.com/charlesng35/tenancy/internal/auth"
	"github.com/charlesng35/tenancy/internal/models"
	"github.com/charlesng35/tenancy/internal/services"
	"github.com/charlesng35/tenancy/pkg/errors"
	"github.com/charlesng35/tenancy/pkg/logger"
	"github.com/charlesng35/tenancy/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxUserIDKey  = "userID"
	CtxOrgRoleKey = "orgRole"
)

// UserProvisioner registers identities the first time they are seen.
type UserProvisioner interface {
	Ensure(ctx context.Context, input services.CreateUserInput) (*models.User, error)
}

// Auth enforces JWT authentication using the supplied JWT service. When users
// is non-nil the caller's identity row is provisioned from the token claims.
func Auth(jwt *iauth.JWTService, users UserProvisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    claims.UserID,
			Email:     claims.Email,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		if users != nil {
			if _, err := users.Ensure(ctx, services.CreateUserInput{
				ID:    claims.UserID,
				Name:  claims.Name,
				Email: claims.Email,
			}); err != nil {
				logger.WithModule("auth").Warn("identity provisioning failed",
					zap.String("user_id", claims.UserID),
					zap.Error(err),
				)
				response.Error(c, err)
				c.Abort()
				return
			}
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)

		c.Next()
	}
}
