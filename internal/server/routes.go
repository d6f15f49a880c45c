package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/civicweb/cms/internal/config"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(otelecho.Middleware(config.String(config.ENV_KEY_SERVICE_NAME, "cms-api"),
		otelecho.WithSkipper(skipper)))
	e.Use(middleware.RequestID())
	e.Use(NewEchoLogger(s.log))
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", config.HEADER_KEY_X_AUTH_REDIRECTED},
		ExposeHeaders:    []string{config.HEADER_KEY_X_AUTH_REDIRECT},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/api/health", s.healthHandler)

	if s.assetsDir != "" {
		e.Static("/assets", s.assetsDir)
	}

	var v1 = e.Group("/api/v1", s.AuthMiddleware)

	var mediaGroup = v1.Group("/media")
	mediaGroup.GET("", s.ListMediaItems)
	mediaGroup.POST("", s.CreateMediaItem)
	mediaGroup.GET("/:id", s.GetMediaItemByID)
	mediaGroup.PUT("/:id", s.UpdateMediaItem)
	mediaGroup.DELETE("/:id", s.DeleteMediaItem)

	var programGroup = v1.Group("/programs")
	programGroup.GET("", s.ListPrograms)
	programGroup.POST("", s.CreateProgram)
	programGroup.GET("/:id", s.GetProgramByID)
	programGroup.PUT("/:id", s.UpdateProgram)
	programGroup.DELETE("/:id", s.DeleteProgram)

	var projectGroup = v1.Group("/projects")
	projectGroup.GET("", s.ListProjects)
	projectGroup.POST("", s.CreateProject)
	projectGroup.GET("/:id", s.GetProjectByID)
	projectGroup.PUT("/:id", s.UpdateProject)
	projectGroup.DELETE("/:id", s.DeleteProject)

	var timelineGroup = v1.Group("/timeline")
	timelineGroup.GET("", s.ListTimelineEntries)
	timelineGroup.POST("", s.CreateTimelineEntry)
	timelineGroup.GET("/:id", s.GetTimelineEntryByID)
	timelineGroup.PUT("/:id", s.UpdateTimelineEntry)
	timelineGroup.DELETE("/:id", s.DeleteTimelineEntry)

	var jobGroup = v1.Group("/jobs")
	jobGroup.GET("", s.ListJobs)
	jobGroup.POST("/sweep", s.RequestSweep)
	jobGroup.GET("/:id", s.GetJobByID)

	return e
}

func (s *Server) healthHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.server.Health())
}
