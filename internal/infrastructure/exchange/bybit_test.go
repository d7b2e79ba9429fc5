package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

const (
	testKey    = "test-key"
	testSecret = "test-secret"
)

func newTestAdapter(handler http.HandlerFunc) (*BybitAdapter, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewBybitAdapter(testKey, testSecret, srv.URL), srv
}

func TestRetrieveSignsRequest(t *testing.T) {
	var gotReq *http.Request
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		fmt.Fprint(w, `{"retCode":0,"result":{"list":[]}}`)
	})
	defer srv.Close()

	_, err := adapter.Retrieve(context.Background(), domain.KindExecutionLinear, domain.RetrieveQuery{
		Start: time.UnixMilli(1000), End: time.UnixMilli(2000), Limit: 100,
	})
	require.NoError(t, err)
	require.NotNil(t, gotReq)

	assert.Equal(t, "/v5/execution/list", gotReq.URL.Path)
	assert.Equal(t, "linear", gotReq.URL.Query().Get("category"))
	assert.Equal(t, "1000", gotReq.URL.Query().Get("startTime"))
	assert.Equal(t, "2000", gotReq.URL.Query().Get("endTime"))

	assert.Equal(t, testKey, gotReq.Header.Get("X-BAPI-API-KEY"))
	assert.Equal(t, "5000", gotReq.Header.Get("X-BAPI-RECV-WINDOW"))

	// Signature must cover timestamp + key + recvWindow + raw query string.
	ts := gotReq.Header.Get("X-BAPI-TIMESTAMP")
	require.NotEmpty(t, ts)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(ts + testKey + "5000" + gotReq.URL.RawQuery))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotReq.Header.Get("X-BAPI-SIGN"))
}

func TestRetrieveUsesRowsForAssetEndpoints(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/asset/deposit/query-record", r.URL.Path)
		fmt.Fprint(w, `{"retCode":0,"result":{"rows":[{"coin":"USDT","amount":"100"}],"nextPageCursor":""}}`)
	})
	defer srv.Close()

	page, err := adapter.Retrieve(context.Background(), domain.KindDepositRecords, domain.RetrieveQuery{
		Start: time.UnixMilli(0), End: time.UnixMilli(1000), Limit: 50,
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "USDT", page.Records[0]["coin"])
	assert.False(t, page.More)
}

func TestRetrieveMoreOnCursorOrFullPage(t *testing.T) {
	responses := []string{
		`{"retCode":0,"result":{"list":[{"a":"1"}],"nextPageCursor":"abc"}}`,
		`{"retCode":0,"result":{"list":[{"a":"1"},{"a":"2"}],"nextPageCursor":""}}`,
	}
	call := 0
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, responses[call])
		call++
	})
	defer srv.Close()

	q := domain.RetrieveQuery{Start: time.UnixMilli(0), End: time.UnixMilli(1000), Limit: 2}

	page, err := adapter.Retrieve(context.Background(), domain.KindClosedPnL, q)
	require.NoError(t, err)
	assert.True(t, page.More, "cursor present")

	page, err = adapter.Retrieve(context.Background(), domain.KindClosedPnL, q)
	require.NoError(t, err)
	assert.True(t, page.More, "page exactly at limit")
}

func TestRetrieveConvertHistoryPagesByIndex(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/asset/exchange/query-convert-history", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("index"))
		assert.Empty(t, r.URL.Query().Get("startTime"))
		fmt.Fprint(w, `{"retCode":0,"result":{"list":[]}}`)
	})
	defer srv.Close()

	_, err := adapter.Retrieve(context.Background(), domain.KindConvertHistory, domain.RetrieveQuery{
		Page: 3, Limit: 100,
	})
	require.NoError(t, err)
}

func TestRetrieveAPIError(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retCode":10003,"retMsg":"API key is invalid."}`)
	})
	defer srv.Close()

	_, err := adapter.Retrieve(context.Background(), domain.KindExecutionLinear, domain.RetrieveQuery{
		Start: time.UnixMilli(0), End: time.UnixMilli(1000), Limit: 100,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10003")
	assert.Contains(t, err.Error(), "API key is invalid")
}

func TestRetrieveUnknownKind(t *testing.T) {
	adapter := NewBybitAdapter(testKey, testSecret, "http://unused")
	_, err := adapter.Retrieve(context.Background(), domain.RecordKind("bogus"), domain.RetrieveQuery{})
	require.Error(t, err)
}

func TestWalletBalance(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/account/wallet-balance", r.URL.Path)
		assert.Equal(t, "UNIFIED", r.URL.Query().Get("accountType"))
		fmt.Fprint(w, `{"retCode":0,"result":{"list":[{"accountType":"UNIFIED","coin":[{"coin":"USDT","walletBalance":"100"}]}]}}`)
	})
	defer srv.Close()

	wallet, err := adapter.WalletBalance(context.Background(), "UNIFIED")
	require.NoError(t, err)
	accounts, ok := wallet["list"].([]any)
	require.True(t, ok)
	assert.Len(t, accounts, 1)
}

func TestServerTime(t *testing.T) {
	adapter, srv := newTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/time", r.URL.Path)
		// Unauthenticated endpoint: no signature expected.
		assert.Empty(t, r.Header.Get("X-BAPI-SIGN"))
		fmt.Fprint(w, `{"retCode":0,"result":{"timeSecond":"1700000000","timeNano":"1700000000123456789"}}`)
	})
	defer srv.Close()

	ts, err := adapter.ServerTime(context.Background())
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Unix(1700000000, 0)))
}
