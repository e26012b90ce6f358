// Order HTTP handlers (staff view).
//
//   - GET /orders           (pending orders, weak ETag)
//   - GET /orders/{phone}   (one pending order)
//
// Orders are changed only through bot updates; these endpoints are read-only.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/repo"
)

// ListOrdersResponse wraps the pending orders, oldest first.
type ListOrdersResponse struct {
	Orders []domain.OrderRecord `json:"orders"`
}

// ListOrders godoc
// @ID          listOrders
// @Summary     List pending orders
// @Description Returns orders awaiting staff approval, oldest first. With the SQL store a weak ETag is set and 304 may be returned.
// @Tags        Orders
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Success     200  {object} handlers.ListOrdersResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /orders [get]
func (h *Handlers) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()

	// The file store has no cheap stats, so only the SQL store gets an ETag.
	if _, isSQL := h.orders.(*repo.SQLOrderStore); isSQL && h.db != nil {
		if n, newest, err := repo.OrdersStats(ctx, h.db); err == nil && notModified(c, "orders", n, newest) {
			return
		}
	}

	items, err := h.orders.List(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.OrderRecord{}
	}
	ok(c, http.StatusOK, ListOrdersResponse{Orders: items})
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Get a pending order
// @Tags        Orders
// @Produce     json
// @Param       phone  path  string  true  "Customer phone, as entered at checkout"  example(+79990000000)
// @Success     200  {object} domain.OrderRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "No pending order for this phone"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /orders/{phone} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	phone := strings.TrimSpace(c.Param("phone"))
	if phone == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone required")
		return
	}
	rec, err := h.orders.Get(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rec)
}
