package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"stocks-trader/logging"
	"stocks-trader/middleware"
	"stocks-trader/web"
)

// NewRouter registers every route on a new gin engine.
func NewRouter(h *Handler, logger *logging.Logger) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(
		middleware.CorrelationID(),
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		middleware.NoCache(),
	)

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/register", h.RegisterForm)
	router.POST("/register", h.Register)
	router.GET("/login", h.LoginForm)
	router.POST("/login", h.Login)
	router.GET("/logout", h.Logout)

	// Protected routes
	authed := router.Group("/")
	authed.Use(middleware.RequireSession(h.sessions))
	{
		authed.GET("/", h.Index)
		authed.GET("/quote", h.QuoteForm)
		authed.POST("/quote", h.Quote)
		authed.GET("/buy", h.BuyForm)
		authed.POST("/buy", h.Buy)
		authed.GET("/sell", h.SellForm)
		authed.POST("/sell", h.Sell)
		authed.GET("/history", h.History)
	}

	return router, nil
}
