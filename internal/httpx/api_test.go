package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/memstore"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

type recorder struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (r *recorder) Publish(key, value []byte, headers ...kafkago.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

func (r *recorder) envelopes(t *testing.T) []shop.Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shop.Envelope, 0, len(r.msgs))
	for _, m := range r.msgs {
		var env shop.Envelope
		require.NoError(t, json.Unmarshal(m.Value, &env))
		out = append(out, env)
	}
	return out
}

type fakePayments struct{ got decimal.Decimal }

func (f *fakePayments) CreateOrder(_ context.Context, total decimal.Decimal) (string, error) {
	f.got = total
	return "https://paypal.test/approve", nil
}

type fixture struct {
	svc          *shop.Service
	api          *API
	router       http.Handler
	checkouts    *recorder
	reservations *recorder
	payments     *fakePayments
	redis        *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := shop.NewService(memstore.New())
	svc.BcryptCost = bcrypt.MinCost
	f := &fixture{svc: svc, checkouts: &recorder{}, reservations: &recorder{}, payments: &fakePayments{}, redis: mr}
	f.api = &API{
		Shop:         svc,
		Idempotency:  &redisx.Idempotency{R: rdb},
		Status:       &redisx.StatusCache{R: rdb},
		Checkouts:    f.checkouts,
		Reservations: f.reservations,
		Payments:     f.payments,
		Service:      "api-test",
	}
	r := NewRouter(5 * time.Second)
	f.api.Register(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) product(t *testing.T, stock int) *shop.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), shop.ProductInput{
		SellerID: "seller-1", Name: "Bata", Size: "M", Image1: "img.png", Stock: stock, Quantity: 1, PriceCents: 1500,
	})
	require.NoError(t, err)
	return p
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCheckoutFlow(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 5)

	rec := f.do(t, http.MethodPost, "/api/cart", map[string]any{"userId": "u1", "productId": p.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "u1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CheckoutResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reservations, 1)
	assert.Equal(t, shop.ReservationPending, resp.Reservations[0].Status)
	assert.NotEmpty(t, resp.CheckoutID)

	got, err := f.svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	envs := f.checkouts.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, shop.EventCheckoutCompleted, envs[0].EventType)
	assert.Equal(t, resp.CheckoutID, envs[0].CorrelationID)
	assert.Equal(t, shop.EventCheckoutCompleted, kafkax.Header(f.checkouts.msgs[0], "x-event-type"))

	rec = f.do(t, http.MethodGet, "/api/orders/"+resp.Reservations[0].ID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st OrderStatusResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "pendiente", st.Status)
	assert.True(t, st.Cached)
}

func TestCheckoutReplaysWithIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 5)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/api/cart", map[string]any{"userId": "u1", "productId": p.ID, "quantity": 2}).Code)

	first := f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "u1"}, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusOK, first.Code)
	second := f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "u1"}, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Len(t, f.checkouts.envelopes(t), 1)

	got, err := f.svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestCheckoutFailureReleasesIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 1)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/api/cart", map[string]any{"userId": "u1", "productId": p.ID, "quantity": 2}).Code)

	rec := f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "u1"}, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, p.ID, body["productId"])
	assert.EqualValues(t, 1, body["available"])
	assert.EqualValues(t, 2, body["requested"])

	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPatch, "/api/products/"+p.ID+"/stock", map[string]int{"delta": 4}).Code)
	rec = f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "u1"}, IdempotencyHeader, "k1")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCheckoutLogsCacheWriteFailure(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 5)
	_, err := f.svc.AddItem(context.Background(), "u1", p.ID, 1)
	require.NoError(t, err)

	hook := logtest.NewGlobal()
	defer hook.Reset()
	f.redis.SetError("LOADING")
	rec := f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "u1"})
	f.redis.SetError("")
	require.Equal(t, http.StatusOK, rec.Code, "the checkout is committed even when the cache is down")

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "status cache write" && e.Level == log.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.Len(t, f.checkouts.envelopes(t), 1)
}

func TestCheckoutErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	p := f.product(t, 2)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/api/cart", map[string]any{"userId": "u1", "productId": p.ID, "quantity": 1}).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/cart/clear", map[string]string{"userId": "u1"}).Code)

	rec = f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{"userId": "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cart/checkout", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.checkouts.envelopes(t))
}

func TestOrderStatusTransitionsPublish(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 3)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "u1", p.ID, 1)
	require.NoError(t, err)
	rs, err := f.svc.Checkout(ctx, "u1")
	require.NoError(t, err)
	id := rs[0].ID

	rec := f.do(t, http.MethodPatch, "/api/orders/"+id+"/almacenado", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPatch, "/api/orders/"+id, map[string]string{"status": "completado"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPatch, "/api/orders/"+id+"/pedido", nil)
	require.Equal(t, http.StatusOK, rec.Code, "completed orders can be reopened")
	rec = f.do(t, http.MethodPatch, "/api/orders/"+id, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	envs := f.reservations.envelopes(t)
	require.Len(t, envs, 3)
	done, err := kafkax.UnwrapPayload[shop.ReservationStatusChangedPayload](envs[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, shop.ReservationCompleted, done.Status)
	last, err := kafkax.UnwrapPayload[shop.ReservationStatusChangedPayload](envs[2].Payload)
	require.NoError(t, err)
	assert.Equal(t, shop.ReservationPending, last.Status)

	rec = f.do(t, http.MethodGet, "/api/orders/"+id+"/status", nil)
	var st OrderStatusResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "pendiente", st.Status)

	rec = f.do(t, http.MethodDelete, "/api/orders/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, shop.EventReservationDeleted, f.reservations.envelopes(t)[3].EventType)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/orders/"+id+"/status", nil).Code)
}

func TestUserSignupAndLogin(t *testing.T) {
	f := newFixture(t)
	in := map[string]string{
		"name": "Ana", "lastName": "Ruiz", "email": "Ana@Example.com", "phone": "5512345678",
		"password": "s3cret", "gender": "Femenino",
	}
	rec := f.do(t, http.MethodPost, "/api/users", in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "s3cret")
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/users", in).Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "who@example.com", "password": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductEndpoints(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/products", map[string]any{
		"userId": "seller-9", "name": "Gorro", "size": "U", "image_1": "a.png", "stock": 2, "price_cents": 900,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p shop.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, shop.ProductAvailable, p.Status)

	rec = f.do(t, http.MethodGet, "/api/products/user/seller-9", nil)
	var list []shop.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = f.do(t, http.MethodGet, "/api/products/user/nobody", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = f.do(t, http.MethodPatch, "/api/products/"+p.ID+"/stock", map[string]int{"delta": -3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/products/"+p.ID+"/sold", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, shop.ProductSold, p.Status)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, "/api/products/"+p.ID+"/quantity", map[string]any{}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/products/missing", nil).Code)
}

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/payments/create-order", map[string]any{"totalAmount": "42.10"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"approvalUrl":"https://paypal.test/approve"}`, rec.Body.String())
	assert.True(t, f.payments.got.Equal(decimal.RequireFromString("42.10")))

	rec = f.do(t, http.MethodPost, "/api/payments/create-order", map[string]any{"totalAmount": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidJSON(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/cart", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
