package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

const (
	BybitBaseURL = "https://api.bybit.com"
	BybitWSURL   = "wss://stream.bybit.com/v5/private"

	recvWindow = 5000
)

// BybitAdapter is a read-only client over Bybit's v5 account-history REST
// endpoints. It implements domain.HistoryProvider.
type BybitAdapter struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

func NewBybitAdapter(apiKey, apiSecret, baseURL string) *BybitAdapter {
	if baseURL == "" {
		baseURL = BybitBaseURL
	}
	return &BybitAdapter{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// sign builds the V5 request signature: timestamp + apiKey + recvWindow + params.
func (b *BybitAdapter) sign(params string, timestamp int64) string {
	toSign := fmt.Sprintf("%d%s%d%s", timestamp, b.apiKey, recvWindow, params)
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(toSign))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *BybitAdapter) sendRequest(ctx context.Context, method, path string, payload map[string]interface{}) ([]byte, error) {
	timestamp := time.Now().UnixMilli()

	var body []byte
	var paramsStr string

	if payload != nil {
		jsonBody, _ := json.Marshal(payload)
		body = jsonBody
		paramsStr = string(jsonBody)
	} else if method == http.MethodGet {
		// For GET, the signed params are the query string.
		if idx := strings.Index(path, "?"); idx != -1 {
			paramsStr = path[idx+1:]
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-BAPI-API-KEY", b.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-BAPI-SIGN", b.sign(paramsStr, timestamp))
	req.Header.Set("X-BAPI-RECV-WINDOW", strconv.Itoa(recvWindow))
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(respBody))
	}

	return respBody, nil
}

// historyEnvelope is the common v5 response shape; history endpoints return
// their records under either "list" or "rows".
type historyEnvelope struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List           []domain.RawRecord `json:"list"`
		Rows           []domain.RawRecord `json:"rows"`
		NextPageCursor string             `json:"nextPageCursor"`
	} `json:"result"`
}

// Retrieve fetches one page of history records of the given kind. Time-ranged
// kinds use q.Start/q.End; convert history pages by q.Page.
func (b *BybitAdapter) Retrieve(ctx context.Context, kind domain.RecordKind, q domain.RetrieveQuery) (domain.Page, error) {
	path, useRows, v, err := endpointFor(kind, q)
	if err != nil {
		return domain.Page{}, err
	}

	resp, err := b.sendRequest(ctx, http.MethodGet, path+"?"+v.Encode(), nil)
	if err != nil {
		return domain.Page{}, err
	}

	var env historyEnvelope
	if err := json.Unmarshal(resp, &env); err != nil {
		return domain.Page{}, fmt.Errorf("decode %s response: %w", kind, err)
	}
	if env.RetCode != 0 {
		return domain.Page{}, fmt.Errorf("bybit %s error %d: %s", kind, env.RetCode, env.RetMsg)
	}

	records := env.Result.List
	if useRows {
		records = env.Result.Rows
	}
	more := env.Result.NextPageCursor != "" || (q.Limit > 0 && len(records) == q.Limit)
	return domain.Page{Records: records, More: more}, nil
}

func endpointFor(kind domain.RecordKind, q domain.RetrieveQuery) (path string, useRows bool, v url.Values, err error) {
	v = url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	timeRanged := true
	switch kind {
	case domain.KindExecutionLinear:
		path = "/v5/execution/list"
		v.Set("category", "linear")
	case domain.KindExecutionSpot:
		path = "/v5/execution/list"
		v.Set("category", "spot")
	case domain.KindClosedPnL:
		path = "/v5/position/closed-pnl"
		v.Set("category", "linear")
	case domain.KindDepositRecords:
		path = "/v5/asset/deposit/query-record"
		useRows = true
	case domain.KindWithdrawalRecords:
		path = "/v5/asset/withdraw/query-record"
		v.Set("withdrawType", "2")
		useRows = true
	case domain.KindInternalDeposits:
		path = "/v5/asset/deposit/query-internal-record"
		useRows = true
	case domain.KindInternalTransfers:
		path = "/v5/asset/transfer/query-inter-transfer-list"
	case domain.KindUniversalTransfers:
		path = "/v5/asset/transfer/query-universal-transfer-list"
	case domain.KindConvertHistory:
		path = "/v5/asset/exchange/query-convert-history"
		v.Set("index", strconv.Itoa(q.Page))
		timeRanged = false
	default:
		return "", false, nil, fmt.Errorf("unknown record kind: %s", kind)
	}

	if timeRanged {
		v.Set("startTime", strconv.FormatInt(q.Start.UnixMilli(), 10))
		v.Set("endTime", strconv.FormatInt(q.End.UnixMilli(), 10))
	}
	return path, useRows, v, nil
}

// WalletBalance returns the raw wallet snapshot for an account type.
func (b *BybitAdapter) WalletBalance(ctx context.Context, accountType string) (domain.RawRecord, error) {
	v := url.Values{}
	v.Set("accountType", accountType)

	resp, err := b.sendRequest(ctx, http.MethodGet, "/v5/account/wallet-balance?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		RetCode int              `json:"retCode"`
		RetMsg  string           `json:"retMsg"`
		Result  domain.RawRecord `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("decode wallet balance: %w", err)
	}
	if result.RetCode != 0 {
		return nil, fmt.Errorf("bybit wallet balance error %d: %s", result.RetCode, result.RetMsg)
	}
	return result.Result, nil
}

// ServerTime fetches the exchange clock; used as an unauthenticated
// connectivity check before a sync.
func (b *BybitAdapter) ServerTime(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v5/market/time", nil)
	if err != nil {
		return time.Time{}, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, err
	}

	var result struct {
		RetCode int `json:"retCode"`
		Result  struct {
			TimeSecond string `json:"timeSecond"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(result.Result.TimeSecond, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse server time: %w", err)
	}
	return time.Unix(sec, 0), nil
}
