package ledger_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Unwrap(t *testing.T) {
	t.Parallel()

	ok := ledger.Succeed(42)
	data, err := ok.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 42, data)
	assert.True(t, ok.Success())
	assert.Equal(t, ledger.ErrorKind(""), ok.Kind())

	failed := ledger.Fail[int](ledger.NewFailure(ledger.KindServerError, 500, "boom"))
	data, err = failed.Unwrap()
	require.Error(t, err)
	assert.Zero(t, data)
	assert.False(t, failed.Success())
	assert.Equal(t, ledger.KindServerError, failed.Kind())
	assert.ErrorIs(t, err, ledger.ErrServerError)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("typed payload", func(t *testing.T) {
		t.Parallel()

		raw := ledger.Succeed(json.RawMessage(`{"id":7,"sku":"A-1","name":"Widget","price":9.5,"stock":3}`))
		product, err := ledger.Decode[ledger.Product](raw).Unwrap()
		require.NoError(t, err)
		assert.Equal(t, ledger.ID("7"), product.ID)
		assert.Equal(t, "Widget", product.Name)
		assert.Equal(t, 3, product.Stock)
	})

	t.Run("null payload", func(t *testing.T) {
		t.Parallel()

		result := ledger.Decode[[]ledger.Product](ledger.Succeed(json.RawMessage("null")))
		require.True(t, result.Success())
		assert.Nil(t, result.Data)
	})

	t.Run("mismatched payload", func(t *testing.T) {
		t.Parallel()

		result := ledger.Decode[ledger.Product](ledger.Succeed(json.RawMessage(`["not","an","object"]`)))
		require.False(t, result.Success())
		assert.Equal(t, ledger.KindParseError, result.Failure.Kind)
	})

	t.Run("failure passes through", func(t *testing.T) {
		t.Parallel()

		failure := ledger.NewFailure(ledger.KindTimeout, 0, "slow")
		result := ledger.Decode[ledger.Product](ledger.Fail[json.RawMessage](failure))
		assert.Same(t, failure, result.Failure)
	})
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	assert.True(t, ledger.Discard(ledger.Succeed("x")).Success())

	failure := ledger.NewFailure(ledger.KindNotFound, 404, "gone")
	assert.Same(t, failure, ledger.Discard(ledger.Fail[string](failure)).Failure)
}

func TestID_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var user ledger.UserSummary
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"username":"test"}`), &user))
	assert.Equal(t, ledger.ID("1"), user.ID)

	n, ok := user.ID.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"u-9f"}`), &user))
	assert.Equal(t, "u-9f", user.ID.String())

	_, ok = user.ID.Int()
	assert.False(t, ok)

	require.NoError(t, json.Unmarshal([]byte(`{"id":null}`), &user))
	assert.Empty(t, user.ID)
}

func TestSession_Authenticated(t *testing.T) {
	t.Parallel()

	var nilSession *ledger.Session
	assert.False(t, nilSession.Authenticated())
	assert.False(t, (&ledger.Session{}).Authenticated())
	assert.True(t, (&ledger.Session{AccessToken: "A"}).Authenticated())
}

func TestApplyCallOptions(t *testing.T) {
	t.Parallel()

	opts := ledger.ApplyCallOptions(
		ledger.CallTimeout(2*time.Second),
		ledger.CallRetries(0),
		ledger.CallHeader("X-Tenant", "north"),
		ledger.ExpectShape(ledger.ShapeItems),
		ledger.KeepSessionOnUnauthorized(),
		nil,
	)

	assert.Equal(t, 2*time.Second, opts.Timeout)
	assert.True(t, opts.HasRetries)
	assert.Equal(t, 0, opts.MaxRetries)
	assert.Equal(t, "north", opts.Headers["X-Tenant"])
	assert.Equal(t, ledger.ShapeItems, opts.Shape)
	assert.True(t, opts.SkipSessionClear)
	assert.False(t, opts.SkipAuth)
	assert.Equal(t, "items", opts.Shape.String())
}
