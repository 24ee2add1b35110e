package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

type statusReq struct {
	Status shop.ReservationStatus `json:"status"`
}

type OrderStatusResp struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	Cached    bool      `json:"cached"`
}

func (a *API) listOpenOrders(w http.ResponseWriter, r *http.Request) {
	vs, err := a.Shop.ListOpenReservations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (a *API) listUserOrders(w http.ResponseWriter, r *http.Request) {
	vs, err := a.Shop.ListReservationsByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (a *API) listSellerOrders(w http.ResponseWriter, r *http.Request) {
	vs, err := a.Shop.ListReservationsBySeller(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	v, err := a.Shop.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// getOrderStatus answers from the Redis cache and falls back to the store.
func (a *API) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if a.Status != nil {
		e, ok, err := a.Status.Get(ctx, id)
		if err != nil {
			log.WithError(err).Warn("status cache read")
		}
		if ok {
			writeJSON(w, http.StatusOK, OrderStatusResp{ID: id, Status: e.Status, UpdatedAt: e.UpdatedAt, Cached: true})
			return
		}
	}

	v, err := a.Shop.GetReservation(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.cacheStatus(ctx, v)
	writeJSON(w, http.StatusOK, OrderStatusResp{ID: id, Status: string(v.Status), UpdatedAt: v.UpdatedAt})
}

func (a *API) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if !decode(w, r, &req) {
		return
	}
	a.setOrderStatus(w, r, req.Status)
}

func (a *API) markOrder(status shop.ReservationStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.setOrderStatus(w, r, status)
	}
}

func (a *API) setOrderStatus(w http.ResponseWriter, r *http.Request, status shop.ReservationStatus) {
	v, err := a.Shop.SetReservationStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.cacheStatus(r.Context(), v)
	a.publish(r, a.Reservations, shop.EventReservationStatusChanged, v.ID, shop.ReservationStatusChangedPayload{
		ReservationID: v.ID,
		Status:        v.Status,
		UpdatedAt:     v.UpdatedAt,
	})
	writeJSON(w, http.StatusOK, v)
}

func (a *API) deleteOrder(w http.ResponseWriter, r *http.Request) {
	v, err := a.Shop.DeleteReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.Status != nil {
		if err := a.Status.Drop(r.Context(), v.ID); err != nil {
			log.WithError(err).Warn("status cache drop")
		}
	}
	a.publish(r, a.Reservations, shop.EventReservationDeleted, v.ID, shop.ReservationDeletedPayload{ReservationID: v.ID})
	writeJSON(w, http.StatusOK, map[string]any{"message": "order deleted", "order": v})
}

func (a *API) cacheStatus(ctx context.Context, v *shop.ReservationView) {
	if a.Status == nil {
		return
	}
	err := a.Status.Put(ctx, v.ID, redisx.StatusEntry{Status: string(v.Status), UpdatedAt: v.UpdatedAt})
	if err != nil {
		log.WithError(err).Warn("status cache write")
	}
}
