package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coffeeshop-be/internal/order"
	"coffeeshop-be/internal/utils"

	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orders order.Service
}

func NewOrderHandler(orders order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderResponse struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"user_id"`
	Items      order.Items  `json:"items"`
	TotalPrice json.Number  `json:"total_price"`
	Status     order.Status `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// formatMoney renders at least two decimals and never drops precision.
func formatMoney(d decimal.Decimal) json.Number {
	if d.Exponent() < -2 {
		return json.Number(d.String())
	}
	return json.Number(d.StringFixed(2))
}

func toOrderResponse(o *order.Order) orderResponse {
	items := o.Items
	if items == nil {
		items = order.Items{}
	}
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Items:      items,
		TotalPrice: formatMoney(o.TotalPrice),
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

// decodeItems accepts either a bare JSON array of items or {"items": [...]}.
func decodeItems(w http.ResponseWriter, r *http.Request) ([]order.Item, error) {
	var raw json.RawMessage
	if err := utils.DecodeJSON(w, r, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	raw = bytes.TrimSpace(raw)
	var items []order.Item
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		return items, nil
	}

	var body struct {
		Items []order.Item `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return body.Items, nil
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	items, err := decodeItems(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), p, items)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), p)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := utils.ParseID(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), p, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

// UpdateStatus reads the target status from ?status= or a JSON body.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := utils.ParseID(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" && r.ContentLength != 0 {
		var body struct {
			Status string `json:"status"`
		}
		if err := utils.DecodeJSON(w, r, &body); err != nil {
			WriteError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		status = body.Status
	}

	o, err := h.orders.UpdateStatus(r.Context(), p, id, status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}
