package middleware

import (
	"net/http"

	"app/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// カタログ管理はADMINだけに開ける。roleはAuthJWTがcontextに積んだもの。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return unauthorized(c)
			}

			if role != string(model.RoleAdmin) {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "admin only"})
			}

			return next(c)
		}
	}
}
