// Package api exposes the order core over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/order"
)

// Handler serves the order API. Authentication happens upstream; the acting
// account arrives in trusted gateway headers.
type Handler struct {
	orders *order.Service
}

// NewHandler creates the API handler around the order service.
func NewHandler(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

// Routes returns the router for the /api/orders subtree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/calculate", h.calculate)
	r.Post("/", h.checkout)

	r.Put("/{id}/cancel", h.cancel)
	r.Put("/{id}/refund", h.refund)
	r.Put("/{id}/confirm", h.confirm)
	r.Put("/{id}/status", h.changeStatus)

	r.Get("/", h.listReceipts)
	r.Get("/summaries", h.listSummaries)
	r.Get("/receipts/{id}", h.getReceipt)
	r.Get("/detail/{id}", h.getDetail)
	r.Get("/book/{bookId}", h.listByBook)
	r.Get("/user", h.listByUser)
	r.Get("/analytics", h.getAnalytics)
	r.Get("/chart", h.getChart)

	return r
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}

	var req order.CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body!")
		return
	}

	view, err := h.orders.Calculate(r.Context(), req, actor)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, view)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}

	var req order.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body!")
		return
	}

	view, err := h.orders.Checkout(r.Context(), req, order.RequestContext{
		CaptchaToken:  r.Header.Get("X-Captcha-Response"),
		CaptchaSource: r.Header.Get("X-Captcha-Source"),
		RemoteIP:      remoteIP(r),
	}, actor)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, view)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int64, reason string, actor order.Account) error {
		return h.orders.Cancel(r.Context(), id, reason, actor)
	})
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int64, reason string, actor order.Account) error {
		return h.orders.Refund(r.Context(), id, reason, actor)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(int64, string, order.Account) error) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID!")
		return
	}

	var req reasonRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body!")
			return
		}
	}

	if err := op(id, req.Reason, actor); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID!")
		return
	}

	if err := h.orders.Confirm(r.Context(), id, actor); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeStatusRequest struct {
	Status order.Status `json:"status"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID!")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body!")
		return
	}

	if err := h.orders.ChangeStatus(r.Context(), id, req.Status, actor); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(r); !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID!")
		return
	}

	view, err := h.orders.GetReceipt(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, view)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}

	page, err := h.orders.GetAllReceipts(r.Context(), actor,
		queryID(r, "shopId"), queryStatus(r), r.URL.Query().Get("keyword"), pageRequest(r))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, page)
}

func (h *Handler) listSummaries(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}

	page, err := h.orders.GetSummaries(r.Context(), actor,
		queryID(r, "shopId"), queryID(r, "bookId"), pageRequest(r))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, page)
}

func (h *Handler) getDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID!")
		return
	}

	view, err := h.orders.GetOrderDetail(r.Context(), id, actor)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, view)
}

func (h *Handler) listByBook(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(r); !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}
	bookID, err := pathID(r, "bookId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid book ID!")
		return
	}

	page, err := h.orders.GetOrdersByBookID(r.Context(), bookID, pageRequest(r))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, page)
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}

	page, err := h.orders.GetOrdersByUser(r.Context(), actor,
		queryStatus(r), r.URL.Query().Get("keyword"), pageRequest(r))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, page)
}

func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}

	stat, err := h.orders.GetAnalytics(r.Context(), actor, queryID(r, "shopId"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, stat)
}

func (h *Handler) getChart(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized!")
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 {
		writeError(w, http.StatusBadRequest, "Invalid year!")
		return
	}

	points, err := h.orders.GetMonthlySales(r.Context(), actor, queryID(r, "shopId"), year)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, points)
}
