package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftrail/giftrail/errors"
)

func TestNewHTTPProvider(t *testing.T) {
	_, err := NewHTTPProvider("", "key")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotConfigured))

	p, err := NewHTTPProvider("https://wallet.example.com", "key")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestBalance(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/accounts/acct-1/balance", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Write([]byte(`{"account_id":"acct-1","balance":"25000000","currency":"USDC"}`))
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "test-key")
		require.NoError(t, err)

		balance, err := p.Balance(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(25000000), balance)
	})

	t.Run("missing balance field is Upstream, never zero", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"account_id":"acct-1","currency":"USDC"}`))
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "")
		require.NoError(t, err)

		_, err = p.Balance(context.Background(), "acct-1")
		assert.True(t, errors.IsCode(err, errors.ErrCodeUpstream))
	})

	t.Run("non-integer balance is Upstream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"account_id":"acct-1","balance":"25.5"}`))
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "")
		require.NoError(t, err)

		_, err = p.Balance(context.Background(), "acct-1")
		assert.True(t, errors.IsCode(err, errors.ErrCodeUpstream))
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"account_id":"acct-1","balance":"7","extra":{"nested":true}}`))
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "")
		require.NoError(t, err)

		balance, err := p.Balance(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), balance)
	})

	t.Run("404 is NotConfigured", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "")
		require.NoError(t, err)

		_, err = p.Balance(context.Background(), "acct-1")
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotConfigured))
	})

	t.Run("5xx is a retryable network error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "")
		require.NoError(t, err)

		_, err = p.Balance(context.Background(), "acct-1")
		assert.True(t, errors.IsCode(err, errors.ErrCodeNetwork))
		assert.True(t, errors.IsRetryable(err))
	})

	t.Run("unreachable provider is a network error", func(t *testing.T) {
		p, err := NewHTTPProvider("http://127.0.0.1:1", "")
		require.NoError(t, err)

		_, err = p.Balance(context.Background(), "acct-1")
		assert.True(t, errors.IsCode(err, errors.ErrCodeNetwork))
	})
}

func TestCreateAccount(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/accounts", r.URL.Path)
			w.Write([]byte(`{"account_id":"acct-new"}`))
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "")
		require.NoError(t, err)

		id, err := p.CreateAccount(context.Background(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, "acct-new", id)
	})

	t.Run("missing account id is Upstream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		p, err := NewHTTPProvider(srv.URL, "")
		require.NoError(t, err)

		_, err = p.CreateAccount(context.Background(), "ethereum")
		assert.True(t, errors.IsCode(err, errors.ErrCodeUpstream))
	})
}
