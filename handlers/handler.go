// Package handlers serves the HTML pages.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"stocks-trader/auth"
	"stocks-trader/ledger"
	"stocks-trader/logging"
	"stocks-trader/middleware"
	"stocks-trader/models"
	"stocks-trader/session"
)

type Handler struct {
	auth          *auth.Service
	ledger        *ledger.Service
	sessions      *session.Manager
	logger        *logging.Logger
	secureCookies bool
}

// New wires the page handlers. secureCookies marks the session cookie Secure
// and should be set whenever the site is served over TLS.
func New(authSvc *auth.Service, ledgerSvc *ledger.Service, sessions *session.Manager, logger *logging.Logger, secureCookies bool) *Handler {
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Handler{
		auth:          authSvc,
		ledger:        ledgerSvc,
		sessions:      sessions,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

func (h *Handler) render(c *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	_, loggedIn := c.Get(middleware.UserIDKey)
	data["Title"] = title
	data["LoggedIn"] = loggedIn
	c.HTML(status, page, data)
}

// apologize renders the error page. Known error kinds get a 400 with a
// message meant for the user; anything else is logged and shown as a 500.
func (h *Handler) apologize(c *gin.Context, err error) {
	status := http.StatusBadRequest
	var msg string
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		msg = verr.Msg
	case errors.Is(err, models.ErrUnknownSymbol):
		msg = "invalid symbol"
	case errors.Is(err, models.ErrInsufficientFunds):
		msg = "can't afford"
	case errors.Is(err, models.ErrInsufficientHoldings):
		msg = "you do not own enough shares"
	case errors.Is(err, models.ErrAuthentication):
		msg = "invalid username and/or password"
	case errors.Is(err, models.ErrDuplicateUsername):
		msg = "username already exists"
	case errors.Is(err, models.ErrProviderUnavailable):
		msg = "quote service unavailable, try again later"
		h.logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("quote lookup failed")
	default:
		status = http.StatusInternalServerError
		msg = "something went wrong"
		h.logger.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Str("correlation_id", c.GetString(middleware.CorrelationIDKey)).
			Msg("request failed")
	}

	h.render(c, status, "apology.html", "Apology", gin.H{"Code": status, "Message": msg})
}

// bindForm binds the posted form, turning validator failures into
// models.ValidationError so they render like every other input problem.
func bindForm(c *gin.Context, form interface{}) error {
	err := c.ShouldBind(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return &models.ValidationError{Field: field, Msg: "must provide " + field, Err: models.ErrBlankField}
		case "max":
			return models.Invalid(field, field+" is too long")
		default:
			return models.Invalid(field, "invalid "+field)
		}
	}
	return models.Invalid("form", "malformed form")
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
