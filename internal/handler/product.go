package handler

import (
	"net/http"
	"strconv"

	"coffeeshop-be/internal/product"
	"coffeeshop-be/internal/utils"
)

type ProductHandler struct {
	products product.Service
}

func NewProductHandler(products product.Service) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, r, ErrBadRequest)
			return
		}
		limit = n
	}

	products, err := h.products.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, products)
}
