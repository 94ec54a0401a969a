package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/configuration"
	"github.com/iota-uz/commerce-sdk/pkg/constants"
	"github.com/iota-uz/commerce-sdk/pkg/httpapi"
	"github.com/iota-uz/commerce-sdk/pkg/middleware"
	"github.com/iota-uz/commerce-sdk/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),
		middleware.Cors(options.Configuration.Origin),
	}
	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(
		app,
		httpapi.NotFound(),
		httpapi.MethodNotAllowed(),
	), nil
}
