package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocks-trader/session"
)

type registerForm struct {
	Username     string `form:"username" binding:"required,max=128"`
	Password     string `form:"password" binding:"required"`
	Confirmation string `form:"confirmation" binding:"required"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (h *Handler) RegisterForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", "Register", nil)
}

func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := bindForm(c, &form); err != nil {
		h.apologize(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), form.Username, form.Password, form.Confirmation)
	if err != nil {
		h.apologize(c, err)
		return
	}

	h.logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	c.Redirect(http.StatusFound, "/login")
}

// LoginForm forgets any current session before showing the form.
func (h *Handler) LoginForm(c *gin.Context) {
	h.endSession(c)
	h.render(c, http.StatusOK, "login.html", "Log In", nil)
}

func (h *Handler) Login(c *gin.Context) {
	h.endSession(c)

	var form loginForm
	if err := bindForm(c, &form); err != nil {
		h.apologize(c, err)
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.apologize(c, err)
		return
	}

	token, err := h.sessions.Issue(c.Request.Context(), user.ID)
	if err != nil {
		h.apologize(c, err)
		return
	}
	h.setSessionCookie(c, token, int(h.sessions.TTL().Seconds()))

	h.logger.Info().Uint("user_id", user.ID).Msg("user logged in")
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusFound, "/")
}

// endSession revokes the session named by the request cookie, if any, and
// clears the cookie.
func (h *Handler) endSession(c *gin.Context) {
	token, err := c.Cookie(session.CookieName)
	if err != nil || token == "" {
		return
	}
	if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
		h.logger.Warn().Err(err).Msg("failed to revoke session")
	}
	h.setSessionCookie(c, "", -1)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, maxAge, "/", "", h.secureCookies, true)
}
