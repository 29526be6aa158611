package middleware

import (
	"app/internal/repository"

	"github.com/labstack/echo/v4"
)

// トークンのtvとDBのtoken_versionを突き合わせる。
// 不一致は発行後に失効させたトークンなので401（強制ログアウト扱い）。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return unauthorized(c)
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return unauthorized(c)
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return unauthorized(c)
			}

			// 無効化済みアカウントは有効なトークンを持っていても弾く
			if !user.IsActive {
				return unauthorized(c)
			}

			if user.TokenVersion != tv {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}
