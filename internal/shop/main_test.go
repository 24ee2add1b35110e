package shop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-marketplace/internal/memstore"
	"github.com/ariefcatur/go-marketplace/internal/shop"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newService(t *testing.T) (*shop.Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	svc := shop.NewService(st)
	svc.BcryptCost = bcrypt.MinCost
	return svc, st
}

func addProduct(t *testing.T, svc *shop.Service, seller string, stock int) *shop.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), shop.ProductInput{
		SellerID:   seller,
		Name:       "Bata de laboratorio",
		Size:       "M",
		Image1:     "bata.png",
		Stock:      stock,
		Quantity:   1,
		PriceCents: 25000,
	})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, svc *shop.Service, id string) int {
	t.Helper()
	p, err := svc.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// putCart writes a cart as-is, bypassing the line merging AddItem does.
func putCart(t *testing.T, st shop.Store, c shop.Cart) {
	t.Helper()
	err := st.WithTx(context.Background(), func(ctx context.Context, tx shop.Tx) error {
		return tx.SaveCart(ctx, &c)
	})
	require.NoError(t, err)
}
