package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/school"
)

// bearerMiddleware rejects requests without a valid `Authorization: Bearer <jwt>` header.
func bearerMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			raw := strings.TrimPrefix(header, "Bearer ")
			if header == "" || raw == header {
				return errUnauthorized
			}
			claims, err := auth.parse(raw)
			if err != nil {
				return err
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.hasRole(school.RoleAdmin) {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
