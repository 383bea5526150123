package middleware

import (
	stderrors "errors"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/controller"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/core/utils"

	"github.com/labstack/echo/v4"
)

type Middleware struct {
	jwtSecret string
	controller.BaseController
}

// NewMiddleware builds the HTTP middleware set. An empty secret disables bearer
// verification, which is how local and test setups run.
func NewMiddleware(jwtSecret string) *Middleware {
	return &Middleware{
		jwtSecret:      jwtSecret,
		BaseController: controller.NewBaseController(),
	}
}

func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.jwtSecret == "" {
				return next(c)
			}

			token, err := utils.GetTokenFromHeader(c)
			if err != nil {
				if stderrors.Is(err, utils.ErrMissingHeader) {
					return m.ErrorResponse(c, errors.NewAppError(errors.ErrMissingAuthorizationHeader, "missing authorization header", err))
				}
				return m.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidTokenFormat, "invalid authorization header", err))
			}

			tokenData, err := utils.ValidateAndParseToken(m.jwtSecret, token)
			if err != nil {
				if stderrors.Is(err, utils.ErrTokenExpired) {
					return m.ErrorResponse(c, errors.NewAppError(errors.ErrTokenExpired, "token expired", err))
				}
				return m.ErrorResponse(c, errors.NewAppError(errors.ErrUnauthorized, "invalid token", err))
			}
			if tokenData.Scope != constants.ScopeTokenAccess {
				return m.ErrorResponse(c, errors.NewAppError(errors.ErrUnauthorized, "invalid token scope", nil))
			}

			c.Set(constants.ContextTokenData, tokenData)
			return next(c)
		}
	}
}

// RequestLogger writes one structured line per request.
func (m *Middleware) RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			logger.Info("HTTP:Request",
				"method", req.Method,
				"path", c.Path(),
				"uri", req.RequestURI,
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// TokenData returns the verified token attached by AuthMiddleware, if any.
func TokenData(c echo.Context) (*utils.TokenData, bool) {
	data, ok := c.Get(constants.ContextTokenData).(*utils.TokenData)
	return data, ok
}
