package binance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/fd1az/omniroute/internal/logger"
)

func TestClient_BuildStreamURL(t *testing.T) {
	c, err := NewClient(ClientConfig{BaseURL: "wss://example.com:9443", Symbols: []string{"ETHUSDT", "btcusdt"}}, testLogger())
	assert.NoError(t, err)

	got, err := c.buildStreamURL()
	assert.NoError(t, err)
	assert.Equal(t, got, "wss://example.com:9443/stream?streams=ethusdt@bookTicker/btcusdt@bookTicker")

	empty, err := NewClient(ClientConfig{}, testLogger())
	assert.NoError(t, err)
	_, err = empty.buildStreamURL()
	assert.Error(t, err)
}

func TestClient_HandleMessage(t *testing.T) {
	c, err := NewClient(DefaultClientConfig([]string{"ETHUSDT"}), testLogger())
	assert.NoError(t, err)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return at }

	tests := []struct {
		name string
		msg  string
	}{
		{name: "subscription_ack", msg: `{"result":null,"id":1}`},
		{name: "garbage", msg: `not json`},
		{name: "other_stream", msg: `{"stream":"ethusdt@aggTrade","data":{"p":"1"}}`},
		{name: "bad_price", msg: `{"stream":"ethusdt@bookTicker","data":{"s":"ETHUSDT","b":"x","a":"1"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.handleMessage(context.Background(), []byte(tt.msg))
			_, ok := c.Ticker("ETHUSDT")
			assert.False(t, ok)
		})
	}

	c.handleMessage(context.Background(), []byte(`{"stream":"ethusdt@bookTicker","data":{"u":1,"s":"ETHUSDT","b":"3000.10","B":"2","a":"3000.20","A":"1"}}`))
	tk, ok := c.Ticker("ethusdt")
	assert.True(t, ok)
	assert.Equal(t, tk.Symbol, "ETHUSDT")
	assert.True(t, tk.Bid.Equal(decimal.RequireFromString("3000.10")))
	assert.True(t, tk.Ask.Equal(decimal.RequireFromString("3000.20")))
	assert.Equal(t, tk.UpdatedAt, at)
}

func TestClient_StreamsTickers(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		msg := `{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"60000","B":"1","a":"60001","A":"1"}}`
		_ = conn.Write(r.Context(), websocket.MessageText, []byte(msg))
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := DefaultClientConfig([]string{"BTCUSDT"})
	cfg.BaseURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := NewClient(cfg, testLogger())
	assert.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, c.Connect(ctx))
	assert.True(t, c.Connected())

	deadline := time.Now().Add(2 * time.Second)
	var ok bool
	for time.Now().Before(deadline) {
		if _, ok = c.Ticker("BTCUSDT"); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, ok)
	assert.Equal(t, gotQuery, "streams=btcusdt@bookTicker")

	assert.NoError(t, c.Close())
	assert.False(t, c.Connected())
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}
