package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type quoteForm struct {
	Symbol string `form:"symbol" binding:"required,max=16"`
}

func (h *Handler) QuoteForm(c *gin.Context) {
	h.render(c, http.StatusOK, "quote.html", "Quote", nil)
}

// Quote shows the current price of the posted symbol.
func (h *Handler) Quote(c *gin.Context) {
	var form quoteForm
	if err := bindForm(c, &form); err != nil {
		h.apologize(c, err)
		return
	}

	q, err := h.ledger.Quote(c.Request.Context(), form.Symbol)
	if err != nil {
		h.apologize(c, err)
		return
	}
	h.render(c, http.StatusOK, "quoted.html", "Quoted", gin.H{"Quote": q})
}
