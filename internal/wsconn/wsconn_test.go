package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func serve(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		if handler != nil {
			handler(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echoHandler(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, typ, data); err != nil {
			return
		}
	}
}

func drainHandler(count *atomic.Int32) func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
			if count != nil {
				count.Add(1)
			}
		}
	}
}

func newClient(t *testing.T, url string, tweak func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	cfg.AutoReconnect = false
	if tweak != nil {
		tweak(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"http_scheme", "http://example.com"},
		{"garbage", "://nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(DefaultConfig(tt.url, "test")); err == nil {
				t.Errorf("New(%q) should fail", tt.url)
			}
		})
	}
}

func TestClient_Connect(t *testing.T) {
	tests := []struct {
		name      string
		url       func(t *testing.T) string
		wantErr   bool
		wantState State
	}{
		{
			name:      "reachable",
			url:       func(t *testing.T) string { return serve(t, drainHandler(nil)) },
			wantState: StateConnected,
		},
		{
			name:      "unreachable",
			url:       func(*testing.T) string { return "ws://localhost:59999" },
			wantErr:   true,
			wantState: StateDisconnected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, tt.url(t), nil)
			err := c.Connect(testContext(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Connect err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := c.State(); got != tt.wantState {
				t.Errorf("state = %v, want %v", got, tt.wantState)
			}
			if c.IsConnected() != (tt.wantState == StateConnected) {
				t.Errorf("IsConnected = %v", c.IsConnected())
			}
		})
	}
}

func TestClient_PushedFramesReachHandlerInOrder(t *testing.T) {
	frames := []string{
		`{"stream":"ethusdt@bookTicker","data":{"s":"ETHUSDT","b":"3000.1","a":"3000.2"}}`,
		`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"65000","a":"65001"}}`,
		`{"stream":"ethusdt@bookTicker","data":{"s":"ETHUSDT","b":"3000.3","a":"3000.4"}}`,
	}
	url := serve(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for _, f := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		_, _, _ = conn.Read(ctx)
	})

	c := newClient(t, url, nil)
	got := make(chan string, len(frames))
	c.OnMessage(func(_ context.Context, msg []byte) { got <- string(msg) })

	if err := c.Connect(testContext(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	for i, want := range frames {
		select {
		case msg := <-got:
			if msg != want {
				t.Errorf("frame %d = %s, want %s", i, msg, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
}

func TestClient_SendJSON(t *testing.T) {
	received := make(chan []byte, 1)
	url := serve(t, func(conn *websocket.Conn) {
		if _, data, err := conn.Read(context.Background()); err == nil {
			received <- data
		}
	})

	c := newClient(t, url, nil)
	ctx := testContext(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	req := map[string]any{"method": "SUBSCRIBE", "params": []string{"ethusdt@bookTicker"}, "id": 7}
	if err := c.SendJSON(ctx, req); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}

	select {
	case data := <-received:
		var parsed struct {
			Method string   `json:"method"`
			Params []string `json:"params"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("server got invalid json %q: %v", data, err)
		}
		if parsed.Method != "SUBSCRIBE" || len(parsed.Params) != 1 {
			t.Errorf("server got %+v", parsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server received nothing")
	}
}

func TestClient_EchoRoundTrip(t *testing.T) {
	c := newClient(t, serve(t, echoHandler), nil)
	got := make(chan []byte, 1)
	c.OnMessage(func(_ context.Context, msg []byte) { got <- msg })

	ctx := testContext(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Send(ctx, []byte(`{"ping":1}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case msg := <-got:
		if string(msg) != `{"ping":1}` {
			t.Errorf("echo = %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no echo")
	}
}

func TestClient_StateTransitions(t *testing.T) {
	c := newClient(t, serve(t, drainHandler(nil)), nil)

	var mu sync.Mutex
	var states []State
	c.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := c.Connect(testContext(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_ = c.Close()

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateConnected, StateClosed}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := newClient(t, serve(t, drainHandler(nil)), nil)
	if err := c.Connect(testContext(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := c.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}
	if c.State() != StateClosed {
		t.Errorf("state = %v, want %v", c.State(), StateClosed)
	}
}

func TestClient_ConcurrentSend(t *testing.T) {
	var count atomic.Int32
	c := newClient(t, serve(t, drainHandler(&count)), nil)
	ctx := testContext(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	const workers, perWorker = 8, 6
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := c.SendJSON(ctx, map[string]int{"worker": w, "seq": j}); err != nil {
					t.Errorf("SendJSON: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() < workers*perWorker && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := count.Load(); got != workers*perWorker {
		t.Errorf("server received %d frames, want %d", got, workers*perWorker)
	}
}

func TestClient_DropsConnection(t *testing.T) {
	tests := []struct {
		name    string
		handler func(conn *websocket.Conn)
		tweak   func(*Config)
	}{
		{
			name: "oversized_frame",
			handler: func(conn *websocket.Conn) {
				_ = conn.Write(context.Background(), websocket.MessageText, []byte(strings.Repeat("x", 4096)))
				time.Sleep(500 * time.Millisecond)
			},
			tweak: func(c *Config) { c.MaxMessageSize = 128 },
		},
		{
			name: "read_timeout",
			handler: func(*websocket.Conn) {
				time.Sleep(500 * time.Millisecond)
			},
			tweak: func(c *Config) { c.ReadTimeout = 50 * time.Millisecond },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, serve(t, tt.handler), tt.tweak)
			dropped := make(chan error, 1)
			c.OnStateChange(func(s State, err error) {
				if s == StateDisconnected {
					select {
					case dropped <- err:
					default:
					}
				}
			})

			if err := c.Connect(testContext(t)); err != nil {
				t.Fatalf("Connect: %v", err)
			}
			select {
			case err := <-dropped:
				if err == nil {
					t.Error("drop should carry the read error")
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("connection not dropped, state %v", c.State())
			}
		})
	}
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	var accepted atomic.Int32
	url := serve(t, func(conn *websocket.Conn) {
		if accepted.Add(1) == 1 {
			return
		}
		echoHandler(conn)
	})

	c := newClient(t, url, func(cfg *Config) {
		cfg.AutoReconnect = true
		cfg.InitialBackoff = 20 * time.Millisecond
		cfg.MaxBackoff = 50 * time.Millisecond
	})

	reconnected := make(chan struct{})
	var once sync.Once
	var connects atomic.Int32
	c.OnStateChange(func(s State, _ error) {
		if s == StateConnected && connects.Add(1) == 2 {
			once.Do(func() { close(reconnected) })
		}
	})

	ctx := testContext(t)
	if err := c.ConnectWithRetry(ctx); err != nil {
		t.Fatalf("ConnectWithRetry: %v", err)
	}
	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatalf("no reconnect, state %v", c.State())
	}
	if err := c.Send(ctx, []byte("ping")); err != nil {
		t.Errorf("Send after reconnect: %v", err)
	}
}

func TestClient_ConnectWithRetryGivesUp(t *testing.T) {
	c := newClient(t, "ws://localhost:59999", func(cfg *Config) {
		cfg.InitialBackoff = 5 * time.Millisecond
		cfg.MaxBackoff = 10 * time.Millisecond
		cfg.MaxReconnects = 3
	})
	if err := c.ConnectWithRetry(testContext(t)); err == nil {
		t.Fatal("ConnectWithRetry should fail after MaxReconnects")
	}
}

func TestClient_SendWhileDisconnected(t *testing.T) {
	c := newClient(t, "ws://localhost:59999", nil)
	if err := c.Send(context.Background(), []byte("x")); err == nil {
		t.Error("Send without a connection should fail")
	}
}

func TestClient_ConnectAfterClose(t *testing.T) {
	c := newClient(t, serve(t, echoHandler), nil)
	_ = c.Close()

	if err := c.Connect(context.Background()); err == nil {
		t.Error("Connect after Close should fail")
	}
	if c.State() != StateClosed {
		t.Errorf("state = %v, want %v", c.State(), StateClosed)
	}
}
