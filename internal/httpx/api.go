package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Payments interface {
	CreateOrder(ctx context.Context, total decimal.Decimal) (string, error)
}

type API struct {
	Shop         *shop.Service
	Idempotency  *redisx.Idempotency
	Status       *redisx.StatusCache
	Checkouts    Publisher
	Reservations Publisher
	Payments     Payments
	Service      string
}

func (a *API) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", a.login)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", a.createUser)
			r.Get("/", a.listUsers)
			r.Get("/{id}", a.getUser)
			r.Put("/{id}", a.updateUser)
			r.Patch("/{id}/role", a.updateUserRole)
			r.Delete("/{id}", a.deleteUser)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", a.createProduct)
			r.Get("/", a.listProducts)
			r.Get("/user/{userId}", a.listSellerProducts)
			r.Get("/{id}", a.getProduct)
			r.Put("/{id}", a.updateProduct)
			r.Delete("/{id}", a.deleteProduct)
			r.Patch("/{id}/sold", a.markProductSold)
			r.Patch("/{id}/pending", a.markProductPending)
			r.Patch("/{id}/quantity", a.setProductQuantity)
			r.Patch("/{id}/stock", a.adjustProductStock)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Post("/", a.addToCart)
			r.Post("/checkout", a.checkout)
			r.Delete("/remove", a.removeFromCart)
			r.Patch("/update", a.updateCartQuantity)
			r.Delete("/clear", a.clearCart)
			r.Get("/{userId}", a.getCart)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", a.listOpenOrders)
			r.Get("/user/{userId}", a.listUserOrders)
			r.Get("/product/{userId}", a.listSellerOrders)
			r.Get("/{id}", a.getOrder)
			r.Get("/{id}/status", a.getOrderStatus)
			r.Patch("/{id}", a.updateOrderStatus)
			r.Patch("/{id}/pedido", a.markOrder(shop.ReservationPending))
			r.Patch("/{id}/almacenado", a.markOrder(shop.ReservationStored))
			r.Patch("/{id}/completado", a.markOrder(shop.ReservationCompleted))
			r.Delete("/{id}", a.deleteOrder)
		})

		r.Post("/payments/create-order", a.createPayment)
	})
}

// publish wraps payload in a v1 envelope and hands it to p. Delivery is
// asynchronous; the producer logs failed writes.
func (a *API) publish(r *http.Request, p Publisher, eventType, correlationID string, payload any) {
	if p == nil {
		return
	}
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      a.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(shop.PartitionKey(correlationID), kafkax.MustMarshal(ev), kafkax.Headers(eventType)...)
}
