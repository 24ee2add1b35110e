package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

// IdempotencyHeader lets a client retry a checkout without reserving twice.
const IdempotencyHeader = "Idempotency-Key"

type cartLineReq struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartUserReq struct {
	UserID string `json:"userId"`
}

type CheckoutResp struct {
	Message      string             `json:"message"`
	CheckoutID   string             `json:"checkoutId"`
	Reservations []shop.Reservation `json:"reservations"`
}

func (a *API) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId and productId are required"})
		return
	}
	c, err := a.Shop.AddItem(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product added to cart", "cart": c})
}

func (a *API) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := a.Shop.GetCart(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) removeFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId and productId are required"})
		return
	}
	c, err := a.Shop.RemoveItem(r.Context(), req.UserID, req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product removed from cart", "cart": c})
}

func (a *API) updateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId and productId are required"})
		return
	}
	c, err := a.Shop.UpdateQuantity(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "quantity updated", "cart": c})
}

func (a *API) clearCart(w http.ResponseWriter, r *http.Request) {
	var req cartUserReq
	if !decode(w, r, &req) {
		return
	}
	if err := a.Shop.ClearCart(r.Context(), req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// checkout reserves every cart line in one transaction. With an
// Idempotency-Key header a repeated request replays the first response.
func (a *API) checkout(w http.ResponseWriter, r *http.Request) {
	var req cartUserReq
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := r.Header.Get(IdempotencyHeader)
	if key != "" && a.Idempotency != nil {
		prev, err := a.Idempotency.Claim(ctx, req.UserID, key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if prev != nil {
			w.Header().Set("Idempotent-Replayed", "true")
			writeRaw(w, http.StatusOK, prev)
			return
		}
	} else {
		key = ""
	}

	rs, err := a.Shop.Checkout(ctx, req.UserID)
	if err != nil {
		if key != "" {
			if rerr := a.Idempotency.Release(context.WithoutCancel(ctx), req.UserID, key); rerr != nil {
				log.WithError(rerr).Warn("release idempotency key")
			}
		}
		writeError(w, r, err)
		return
	}

	payload := shop.NewCheckoutCompleted(rs)
	body := kafkax.MustMarshal(CheckoutResp{
		Message:      "checkout completed",
		CheckoutID:   payload.CheckoutID,
		Reservations: rs,
	})
	if key != "" {
		if err := a.Idempotency.Complete(context.WithoutCancel(ctx), req.UserID, key, body); err != nil {
			log.WithError(err).Warn("store idempotent checkout")
		}
	}
	for _, res := range rs {
		a.cacheStatus(ctx, &shop.ReservationView{Reservation: res})
	}
	a.publish(r, a.Checkouts, shop.EventCheckoutCompleted, payload.CheckoutID, payload)

	writeRaw(w, http.StatusOK, body)
}
