package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

type stockReq struct {
	Delta int `json:"delta"`
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var in shop.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := a.Shop.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Shop.ListProducts(r.Context(), "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) listSellerProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Shop.ListProducts(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.Shop.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch shop.ProductPatch
	if !decode(w, r, &patch) {
		return
	}
	p, err := a.Shop.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.Shop.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func (a *API) markProductSold(w http.ResponseWriter, r *http.Request) {
	p, err := a.Shop.MarkSold(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) markProductPending(w http.ResponseWriter, r *http.Request) {
	p, err := a.Shop.MarkPending(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) setProductQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}
	p, err := a.Shop.SetQuantity(r.Context(), chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) adjustProductStock(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if !decode(w, r, &req) {
		return
	}
	p, err := a.Shop.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
