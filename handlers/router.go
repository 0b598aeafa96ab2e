package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"payments-authorizenet/middleware"
)

type Routes struct {
	Payments     *PaymentHandler
	Internal     *InternalHandler
	Health       *HealthHandler
	InternalAuth mux.MiddlewareFunc
	// Middleware runs after CORS, logging and security headers.
	Middleware   []mux.MiddlewareFunc
}

func NewRouter(routes Routes) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.CORS, middleware.Logging, middleware.SecurityHeaders)
	router.Use(routes.Middleware...)

	router.HandleFunc("/api/health", routes.Health.Health).Methods(http.MethodGet, http.MethodOptions)
	routes.Payments.Register(router)

	internal := router.PathPrefix("/internal").Subrouter()
	if routes.InternalAuth != nil {
		internal.Use(routes.InternalAuth)
	}
	routes.Internal.Register(internal)

	return router
}
