package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-marketplace/internal/paypal"
)

type paymentReq struct {
	TotalAmount json.RawMessage `json:"totalAmount"`
}

func (a *API) createPayment(w http.ResponseWriter, r *http.Request) {
	if a.Payments == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "payments are not configured"})
		return
	}
	var req paymentReq
	if !decode(w, r, &req) {
		return
	}
	total, err := paypal.ParseAmount(req.TotalAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := a.Payments.CreateOrder(r.Context(), total)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"approvalUrl": url})
}
