package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stocks-trader/middleware"
	"stocks-trader/models"
	"stocks-trader/quote"
)

type tradeForm struct {
	Symbol string `form:"symbol" binding:"required,max=16"`
	Shares string `form:"shares" binding:"required"`
}

// order parses the form into a symbol and a positive share count.
func (f tradeForm) order() (string, int64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(f.Shares), 10, 63)
	if err != nil || n == 0 {
		return "", 0, models.Invalid("shares", "shares must be a positive integer")
	}
	return quote.Normalize(f.Symbol), int64(n), nil
}

// Index shows the portfolio valued at current prices.
func (h *Handler) Index(c *gin.Context) {
	v, err := h.ledger.Valuation(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.apologize(c, err)
		return
	}
	h.render(c, http.StatusOK, "index.html", "Portfolio", gin.H{"Valuation": v})
}

func (h *Handler) BuyForm(c *gin.Context) {
	h.render(c, http.StatusOK, "buy.html", "Buy", gin.H{"Symbol": quote.Normalize(c.Query("symbol"))})
}

func (h *Handler) Buy(c *gin.Context) {
	var form tradeForm
	if err := bindForm(c, &form); err != nil {
		h.apologize(c, err)
		return
	}
	symbol, shares, err := form.order()
	if err != nil {
		h.apologize(c, err)
		return
	}

	if _, err := h.ledger.Buy(c.Request.Context(), middleware.UserID(c), symbol, shares); err != nil {
		h.apologize(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// SellForm lists the symbols the user can sell.
func (h *Handler) SellForm(c *gin.Context) {
	holdings, err := h.ledger.Holdings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.apologize(c, err)
		return
	}
	h.render(c, http.StatusOK, "sell.html", "Sell", gin.H{"Holdings": holdings})
}

func (h *Handler) Sell(c *gin.Context) {
	var form tradeForm
	if err := bindForm(c, &form); err != nil {
		h.apologize(c, err)
		return
	}
	symbol, shares, err := form.order()
	if err != nil {
		h.apologize(c, err)
		return
	}

	if _, err := h.ledger.Sell(c.Request.Context(), middleware.UserID(c), symbol, shares); err != nil {
		h.apologize(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) History(c *gin.Context) {
	txns, err := h.ledger.History(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.apologize(c, err)
		return
	}
	h.render(c, http.StatusOK, "history.html", "History", gin.H{"Transactions": txns})
}
