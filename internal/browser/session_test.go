// File: internal/browser/session_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwright/stepwright/api/schemas"
)

func TestBuildPageSnapshot(t *testing.T) {
	html := `<html><body>
		<form id="login"><input name="email"></form>
		<div class="cart-summary">Cart (2)</div>
		<a href="/checkout">Checkout</a>
		<input name="cardnumber">
		<p class="error">Invalid coupon</p>
	</body></html>`

	snapshot := buildPageSnapshot("https://shop.test/cart", "Cart", html)

	assert.Equal(t, "https://shop.test/cart", snapshot.URL)
	assert.Equal(t, "Cart", snapshot.Title)
	assert.Equal(t, len(html), snapshot.ContentLength)
	assert.True(t, snapshot.HasLoginFields)
	assert.True(t, snapshot.HasCartElements)
	assert.True(t, snapshot.HasCheckout)
	assert.True(t, snapshot.HasPaymentFields)
	assert.True(t, snapshot.HasErrorMessages)
}

func TestBuildPageSnapshot_PlainPage(t *testing.T) {
	snapshot := buildPageSnapshot("https://shop.test/about", "About", "<html><body><h1>About us</h1></body></html>")

	assert.False(t, snapshot.HasLoginFields)
	assert.False(t, snapshot.HasCartElements)
	assert.False(t, snapshot.HasCheckout)
	assert.False(t, snapshot.HasPaymentFields)
	assert.False(t, snapshot.HasErrorMessages)
}

func TestClassifyFatal(t *testing.T) {
	s := &Session{ctx: context.Background()}

	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, s.classifyFatal(nil))
	})

	t.Run("plain errors are not fatal", func(t *testing.T) {
		assert.NoError(t, s.classifyFatal(errors.New("element not visible")))
	})

	t.Run("transport errors are fatal", func(t *testing.T) {
		for _, msg := range []string{
			"websocket: close 1006",
			"rpc error: connection closed",
			"chrome failed to start: exit status 1",
			"target closed",
		} {
			err := s.classifyFatal(errors.New(msg))
			require.Error(t, err, msg)
			assert.True(t, schemas.IsFatal(err), msg)
		}
	})

	t.Run("dead session context makes any error fatal", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dead := &Session{ctx: ctx}

		err := dead.classifyFatal(errors.New("element not visible"))
		require.Error(t, err)
		assert.True(t, schemas.IsFatal(err))
	})
}

func assertDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled in time")
	}
}

func TestCombineContext(t *testing.T) {
	t.Run("secondary cancel propagates", func(t *testing.T) {
		secondary, cancelSecondary := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), secondary)
		defer cancel()

		cancelSecondary()
		assertDone(t, combined)
	})

	t.Run("parent cancel propagates", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		combined, cancel := CombineContext(parent, context.Background())
		defer cancel()

		cancelParent()
		assertDone(t, combined)
	})

	t.Run("explicit cancel", func(t *testing.T) {
		combined, cancel := CombineContext(context.Background(), context.Background())
		cancel()
		assertDone(t, combined)
	})
}
