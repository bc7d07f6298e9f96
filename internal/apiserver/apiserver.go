// Package apiserver is the local HTTP API the browser console talks to
// when changes have to land in the project's migrations directory.
package apiserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/migration"
	"github.com/hasura/graphql-engine/console/internal/notify"
)

const (
	XHasuraAdminSecret = "X-Hasura-Admin-Secret"
	XHasuraRole        = "X-Hasura-Role"
)

type Runner interface {
	Run(ctx context.Context, m migration.Migration, msgs migration.Messages, cbs migration.Callbacks) (*migration.Result, error)
}

type Exporter interface {
	ExportMetadata(ctx context.Context) (*metadata.Metadata, error)
}

type SourceLister interface {
	List() []metadata.DataSource
}

type Options struct {
	Address string
	Port    string
	// StaticDir, when set, is served under /static.
	StaticDir string
	// Console, when set, is rendered for GET requests outside /apis.
	Console *ConsolePage

	Runner   Runner
	Exporter Exporter
	Sources  SourceLister
	Notifier *notify.Center
	Logger   *logrus.Logger
}

type APIServer struct {
	Router *gin.Engine

	address string
	port    string
	opts    Options
}

func New(opts Options) *APIServer {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(allowCors())
	if opts.StaticDir != "" {
		router.Use(static.Serve("/static", static.LocalFile(opts.StaticDir, false)))
	}

	s := &APIServer{Router: router, address: opts.Address, port: opts.Port, opts: opts}
	s.setRoutes()
	if opts.Console != nil {
		if err := s.setConsole(opts.Console); err != nil {
			opts.Logger.WithError(err).Error("console page disabled")
		}
	}
	return s
}

func (s *APIServer) setRoutes() {
	apis := s.Router.Group("/apis")
	{
		apis.Use(s.setLogger())
		apis.POST("/migrate", s.migrate)
		apis.GET("/metadata", s.exportMetadata)
		apis.GET("/sources", s.listSources)
		notifications := apis.Group("/notifications")
		{
			notifications.GET("", s.listNotifications)
			notifications.POST("/read", s.markNotificationsRead)
		}
	}
}

func (s *APIServer) setLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.opts.Logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Debug("api request")
		c.Next()
	}
}

func (s *APIServer) GetHTTPServer() *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%s", s.address, s.port),
		Handler: s.Router,
	}
}

func allowCors() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AddAllowHeaders(XHasuraAdminSecret)
	config.AddAllowHeaders(XHasuraRole)
	config.AddAllowHeaders("X-Hasura-User-Id")
	config.AddAllowHeaders("Hasura-Client-Name")
	config.AddAllowMethods("DELETE")
	config.AllowAllOrigins = true
	config.AllowCredentials = false
	return cors.New(config)
}
