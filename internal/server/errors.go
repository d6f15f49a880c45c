package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/usecase"
)

// writeError maps a usecase error onto the response envelope.
func (s *Server) writeError(ctx echo.Context, err error) error {
	var (
		verr asset.ValidationError
		nerr usecase.ErrNotFound
		uerr asset.UploadError
	)
	switch {
	case errors.As(err, &verr):
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: verr.Code, Message: verr.Message})
	case errors.As(err, &nerr):
		return ctx.JSON(http.StatusNotFound, Res{Error: nerr.Code, Message: nerr.Message})
	case errors.As(err, &uerr):
		s.log.WarnContext(ctx.Request().Context(), "upload rejected by store",
			slog.String("filename", uerr.Filename),
			slog.String("err", uerr.Err.Error()))
		return ctx.JSON(http.StatusBadGateway, Res{Error: "upload_failed", Message: uerr.Error()})
	default:
		s.log.ErrorContext(ctx.Request().Context(), "request failed", slog.String("err", err.Error()))
		return ctx.JSON(http.StatusInternalServerError, Res{Error: err.Error()})
	}
}

func badRequest(ctx echo.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
}

func unprocessable(ctx echo.Context, err error) error {
	return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
}
