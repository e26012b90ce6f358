// Catalog HTTP handlers.
//
//   - GET /catalog          (full menu grouped by category)
//   - GET /catalog/search   (fuzzy item-name match)
package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-bot/internal/catalog"
	"github.com/tbourn/go-order-bot/internal/utils"
)

// CatalogResponse is the menu in display order.
type CatalogResponse struct {
	Categories []catalog.Category `json:"categories"`
}

// SearchResponse lists ranked matches.
type SearchResponse struct {
	Query   string          `json:"query"`
	Matches []catalog.Match `json:"matches"`
}

// GetCatalog godoc
// @ID          getCatalog
// @Summary     Show the menu
// @Description Returns all categories with their items and prices.
// @Tags        Catalog
// @Produce     json
// @Success     200  {object} handlers.CatalogResponse
// @Router      /catalog [get]
func (h *Handlers) GetCatalog(c *gin.Context) {
	ok(c, http.StatusOK, CatalogResponse{Categories: h.catalog.All()})
}

// SearchCatalog godoc
// @ID          searchCatalog
// @Summary     Search menu items
// @Description Ranks items by token similarity to q. Useful to check how an item name typed by staff will resolve.
// @Tags        Catalog
// @Produce     json
// @Param       q      query  string  true   "Item name or part of it"  example(пицца маргарита)
// @Param       limit  query  int     false  "Max results"  minimum(1) maximum(20) default(5)
// @Success     200  {object} handlers.SearchResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /catalog/search [get]
func (h *Handlers) SearchCatalog(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" || utf8.RuneCountInString(q) > 200 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q must be 1-200 characters")
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 5)
	if limit < 1 {
		limit = 1
	}
	if limit > 20 {
		limit = 20
	}
	matches := h.catalog.Search(q, limit)
	if matches == nil {
		matches = []catalog.Match{}
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Matches: matches})
}
