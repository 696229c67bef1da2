package cart

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coursepay/internal/app/cart"
	"coursepay/internal/domain"
	"coursepay/internal/handler/http/httpx"
)

type AddItemRequest struct {
	CourseID int64 `json:"course_id"`
}

type CourseResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	InstructorID int64   `json:"instructor"`
	Price        float64 `json:"price"`
}

type CartItemResponse struct {
	ID            int64           `json:"id"`
	CourseID      int64           `json:"course"`
	CourseDetails *CourseResponse `json:"course_details,omitempty"`
	AddedAt       time.Time       `json:"added_at"`
}

type CartHandler struct {
	service cart.CartService
	logger  *zap.Logger
}

func NewCartHandler(s cart.CartService, l *zap.Logger) *CartHandler {
	return &CartHandler{service: s, logger: l}
}

func (h *CartHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context(), httpx.Identity(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	out := make([]CartItemResponse, 0, len(items))
	for i := range items {
		out = append(out, mapCartItem(&items[i]))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for AddItem", zap.Error(err))
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, created, err := h.service.AddItem(r.Context(), httpx.Identity(r), req.CourseID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, mapCartItem(item))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		h.logger.Warn("Invalid course ID in RemoveItem request", zap.Error(err))
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "Invalid course ID")
		return
	}

	if err := h.service.RemoveItem(r.Context(), httpx.Identity(r), courseID); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.MessageResponse{Message: "Removed from cart"})
}

func mapCartItem(item *domain.CartItem) CartItemResponse {
	resp := CartItemResponse{
		ID:       item.ID,
		CourseID: item.CourseID,
		AddedAt:  item.AddedAt,
	}
	if c := item.Course; c != nil {
		resp.CourseDetails = &CourseResponse{
			ID:           c.ID,
			Title:        c.Title,
			Description:  c.Description,
			InstructorID: c.InstructorID,
			Price:        c.Price.InexactFloat64(),
		}
	}
	return resp
}
