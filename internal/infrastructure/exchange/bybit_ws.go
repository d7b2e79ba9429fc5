package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

const (
	wsPingInterval   = 20 * time.Second
	wsReconnectDelay = 5 * time.Second
	wsAuthWindow     = 10 * time.Second
)

// BybitPrivateStream consumes the account's private v5 websocket topics
// (execution, position, wallet). It implements domain.PrivateStream.
type BybitPrivateStream struct {
	apiKey    string
	apiSecret string
	wsURL     string
	log       *zap.Logger

	mu          sync.Mutex
	onExecution func([]domain.RawRecord)
	onPosition  func([]domain.RawRecord)
	onWallet    func([]domain.RawRecord)
}

func NewBybitPrivateStream(apiKey, apiSecret, wsURL string, log *zap.Logger) *BybitPrivateStream {
	if wsURL == "" {
		wsURL = BybitWSURL
	}
	return &BybitPrivateStream{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		log:       log,
	}
}

func (s *BybitPrivateStream) OnExecution(cb func([]domain.RawRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExecution = cb
}

func (s *BybitPrivateStream) OnPosition(cb func([]domain.RawRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPosition = cb
}

func (s *BybitPrivateStream) OnWallet(cb func([]domain.RawRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWallet = cb
}

// Run connects, authenticates and subscribes, then dispatches messages to
// the registered callbacks until the context is cancelled. Connection
// failures reconnect after a fixed delay.
func (s *BybitPrivateStream) Run(ctx context.Context) error {
	for {
		if err := s.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("private stream disconnected, reconnecting",
				zap.Error(err),
				zap.Duration("delay", wsReconnectDelay))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wsReconnectDelay):
		}
	}
}

func (s *BybitPrivateStream) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial private stream: %w", err)
	}
	defer conn.Close()

	if err := s.authenticate(conn); err != nil {
		return err
	}
	if err := conn.WriteJSON(map[string]interface{}{
		"op":   "subscribe",
		"args": []string{"execution", "position", "wallet"},
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info("private stream connected",
		zap.Strings("topics", []string{"execution", "position", "wallet"}))

	// Close the connection on cancel so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteJSON(map[string]interface{}{"op": "ping"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event struct {
			Topic   string             `json:"topic"`
			Op      string             `json:"op"`
			Success *bool              `json:"success"`
			RetMsg  string             `json:"ret_msg"`
			Data    []domain.RawRecord `json:"data"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			s.log.Warn("unparseable stream message", zap.Error(err))
			continue
		}

		if event.Success != nil && !*event.Success {
			return fmt.Errorf("stream operation %q rejected: %s", event.Op, event.RetMsg)
		}

		switch event.Topic {
		case "execution":
			s.dispatch(s.execCallback(), event.Data)
		case "position":
			s.dispatch(s.positionCallback(), event.Data)
		case "wallet":
			s.dispatch(s.walletCallback(), event.Data)
		}
	}
}

// authenticate signs "GET/realtime" + expiry with the API secret, per the
// exchange's private-channel handshake.
func (s *BybitPrivateStream) authenticate(conn *websocket.Conn) error {
	expires := time.Now().Add(wsAuthWindow).UnixMilli()
	mac := hmac.New(sha256.New, []byte(s.apiSecret))
	fmt.Fprintf(mac, "GET/realtime%d", expires)
	signature := hex.EncodeToString(mac.Sum(nil))

	return conn.WriteJSON(map[string]interface{}{
		"op":   "auth",
		"args": []interface{}{s.apiKey, expires, signature},
	})
}

func (s *BybitPrivateStream) execCallback() func([]domain.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onExecution
}

func (s *BybitPrivateStream) positionCallback() func([]domain.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onPosition
}

func (s *BybitPrivateStream) walletCallback() func([]domain.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onWallet
}

func (s *BybitPrivateStream) dispatch(cb func([]domain.RawRecord), data []domain.RawRecord) {
	if cb == nil || len(data) == 0 {
		return
	}
	cb(data)
}
