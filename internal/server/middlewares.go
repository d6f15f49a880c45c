package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicweb/cms/internal/config"
	"github.com/civicweb/cms/internal/session"
)

// TokenVerifier checks a bearer token and returns the session it grants.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (session.State, error)
}

var errNoCredentials = errors.New("authorization header is required")

// sessionState resolves the caller's session. Internal clients that present
// the shared client id may assert a uid directly.
func (s *Server) sessionState(c echo.Context) (session.State, error) {
	var (
		req         = c.Request()
		reqClientID = req.Header.Get(config.HEADER_KEY_X_CLIENT_ID)
		reqUID      = req.Header.Get(config.HEADER_KEY_X_UID)
		clientID    = os.Getenv(config.ENV_KEY_CLIENT_ID)
		redirected  = req.Header.Get(config.HEADER_KEY_X_AUTH_REDIRECTED)
	)

	state := session.State{Now: time.Now()}
	state.Redirected, _ = strconv.ParseBool(redirected)

	if reqUID != "" && (config.IsLocal() || (clientID != "" && reqClientID == clientID)) {
		s.log.DebugContext(req.Context(), "internal client request", slog.String("uid", reqUID))
		state.UID = reqUID
		return state, nil
	}

	auth := req.Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return state, errNoCredentials
	}
	if s.verifier == nil {
		return state, errors.New("token verification is not configured")
	}

	verified, err := s.verifier.VerifyIDToken(req.Context(), token)
	if err != nil {
		return state, err
	}
	state.UID = verified.UID
	state.ExpiresAt = verified.ExpiresAt
	return state, nil
}

// AuthMiddleware admits requests that carry a live session and puts the
// session into the downstream context. Rejected clients are pointed at the
// login path unless they report having followed that redirect already.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		state, err := s.sessionState(c)

		if err != nil || !state.Authenticated() {
			msg := "invalid token"
			if err != nil {
				msg = err.Error()
			} else if state.Expired() {
				msg = "session expired"
			}
			s.log.InfoContext(c.Request().Context(), "unauthenticated request",
				slog.String("reason", msg),
				slog.Bool("redirected", state.Redirected))

			if session.ShouldRedirect(state) {
				c.Response().Header().Set(config.HEADER_KEY_X_AUTH_REDIRECT, s.loginPath)
			}
			return c.JSON(http.StatusUnauthorized, Res{
				Error:   "unauthorized",
				Message: msg,
			})
		}

		ctx := session.NewContext(c.Request().Context(), state)
		ctx = context.WithValue(ctx, config.CTX_KEY_USER_ID, state.UID)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
