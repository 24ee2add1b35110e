package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-marketplace/internal/paypal"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

// writeError translates domain errors into status codes. Anything unknown is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stock    *shop.InsufficientStockError
		notFound *shop.ProductNotFoundError
	)
	switch {
	case errors.As(err, &stock):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     err.Error(),
			"productId": stock.ProductID,
			"available": stock.Available,
			"requested": stock.Requested,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error(), "productId": notFound.ProductID})
	case errors.Is(err, shop.ErrCartNotFound),
		errors.Is(err, shop.ErrLineNotFound),
		errors.Is(err, shop.ErrUserNotFound),
		errors.Is(err, shop.ErrReservationNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, shop.ErrEmptyCart),
		errors.Is(err, shop.ErrValidation),
		errors.Is(err, shop.ErrInvalidQuantity),
		errors.Is(err, shop.ErrInvalidStatus),
		errors.Is(err, paypal.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, shop.ErrEmailTaken),
		errors.Is(err, shop.ErrMatriculaTaken),
		errors.Is(err, redisx.ErrInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, shop.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	default:
		log.WithError(err).WithField("url", r.URL.Path).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
