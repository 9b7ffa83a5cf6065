package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/ex"
)

// testPeer 模拟远端,可拒绝握手或主动断开全部连接
type testPeer struct {
	srv      *httptest.Server
	accept   atomic.Bool
	mu       sync.Mutex
	conns    []*websocket.Conn
	accepted atomic.Int32
	received chan []byte
}

func newTestPeer(t *testing.T) *testPeer {
	p := &testPeer{received: make(chan []byte, 16)}
	p.accept.Store(true)
	upgrader := websocket.Upgrader{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.accept.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p.mu.Lock()
		p.conns = append(p.conns, conn)
		p.mu.Unlock()
		p.accepted.Add(1)
		for {
			_, body, err := conn.ReadMessage()
			if err != nil {
				return
			}
			p.received <- body
		}
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *testPeer) endpoint() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http")
}

func (p *testPeer) dropAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.Close()
	}
	p.conns = nil
}

func (p *testPeer) push(t *testing.T, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.conns) == 0 {
		t.Fatal("no live connection")
	}
	if err := p.conns[len(p.conns)-1].WriteMessage(websocket.TextMessage, []byte(body)); err != nil {
		t.Fatal(err)
	}
}

type recorder struct {
	delivered chan []byte
	failed    chan error
}

func newRecorder() *recorder {
	return &recorder{delivered: make(chan []byte, 16), failed: make(chan error, 16)}
}

func (r *recorder) Deliver(body []byte) {
	r.delivered <- body
}

func (r *recorder) FailAll(err error) {
	r.failed <- err
}

type countingDialer struct {
	inner Dialer
	n     atomic.Int32
}

func (d *countingDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	d.n.Add(1)
	return d.inner.Dial(ctx, endpoint)
}

func testConfig(endpoint string) DIC.ClientConfig {
	config := DIC.ClientConfig{
		Endpoint:             endpoint,
		MaxReconnectAttempts: 3,
		BackoffUnit:          20 * time.Millisecond,
		MaxBackoff:           50 * time.Millisecond,
	}
	config.InitDefaults()
	return config
}

func newManager(config DIC.ClientConfig, r *recorder) (*ConnManager, *countingDialer) {
	d := &countingDialer{inner: NewWebsocketDialer(config, false)}
	return NewConnManager(config, d, r), d
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestBackoff(t *testing.T) {
	unit, max := time.Second, 3500*time.Millisecond
	prev := time.Duration(0)
	for n := 1; n <= 10; n++ {
		d := Backoff(n, unit, max)
		if d < prev {
			t.Fatalf("backoff must not decrease: %d -> %v", n, d)
		}
		if d > max {
			t.Fatalf("backoff must be capped: %v", d)
		}
		prev = d
	}
	if Backoff(1, unit, max) != time.Second || Backoff(3, unit, max) != 3*time.Second || Backoff(4, unit, max) != max {
		t.Fatal("attempt n waits n units until the cap")
	}
	if Backoff(1<<62, unit, max) != max {
		t.Fatal("overflow must clamp to the cap")
	}
}

func TestConnectSendReceive(t *testing.T) {
	peer := newTestPeer(t)
	r := newRecorder()
	m, _ := newManager(testConfig(peer.endpoint()), r)
	defer m.Close()

	var states []State
	var mu sync.Mutex
	m.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	if m.State() != Disconnected {
		t.Fatal("initial state must be disconnected")
	}
	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !m.IsConnected() {
		t.Fatal("expected connected")
	}
	if err := m.Send(context.Background(), []byte(`{"id":"1"}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case b := <-peer.received:
		if string(b) != `{"id":"1"}` {
			t.Fatalf("peer got %s", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer did not receive message")
	}
	peer.push(t, `{"id":"1","data":true}`)
	select {
	case b := <-r.delivered:
		if string(b) != `{"id":"1","data":true}` {
			t.Fatalf("delivered %s", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != Connecting || states[1] != Connected {
		t.Fatalf("unexpected transitions: %v", states)
	}
}

func TestConnectError(t *testing.T) {
	peer := newTestPeer(t)
	peer.accept.Store(false)
	r := newRecorder()
	m, _ := newManager(testConfig(peer.endpoint()), r)
	defer m.Close()

	err := m.Connect(context.Background())
	if !ex.IsCode(err, ex.CONNECT) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if m.State() != Disconnected {
		t.Fatalf("state after failure: %v", m.State())
	}
	if err := m.Send(context.Background(), []byte("x")); !ex.IsCode(err, ex.CONN_LOST) {
		t.Fatalf("send without connection: %v", err)
	}
}

func TestDropFailsPendingAndReconnects(t *testing.T) {
	peer := newTestPeer(t)
	r := newRecorder()
	m, d := newManager(testConfig(peer.endpoint()), r)
	defer m.Close()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	peer.dropAll()
	select {
	case err := <-r.failed:
		if !ex.IsCode(err, ex.CONN_LOST) {
			t.Fatalf("expected connection lost, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending calls were not failed")
	}
	waitFor(t, "reconnect", func() bool { return peer.accepted.Load() == 2 && m.IsConnected() })
	if m.Failures() != 0 {
		t.Fatalf("failures must reset after reconnect: %d", m.Failures())
	}
	if d.n.Load() != 2 {
		t.Fatalf("expected 2 dials, got %d", d.n.Load())
	}
	select {
	case err := <-r.failed:
		t.Fatalf("fail all must run once per drop, got extra %v", err)
	default:
	}
}

func TestReconnectExhausted(t *testing.T) {
	peer := newTestPeer(t)
	r := newRecorder()
	config := testConfig(peer.endpoint())
	m, d := newManager(config, r)
	defer m.Close()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	peer.accept.Store(false)
	peer.dropAll()
	waitFor(t, "terminal error", func() bool { return m.Terminal() != nil })

	if got := d.n.Load(); got != int32(1+config.MaxReconnectAttempts) {
		t.Fatalf("expected %d dials, got %d", 1+config.MaxReconnectAttempts, got)
	}
	if m.State() != Disconnected {
		t.Fatal("exhausted manager must stay disconnected")
	}
	// 终止后不再隐式拨号
	peer.accept.Store(true)
	err := m.EnsureConnected(context.Background())
	if !ex.IsCode(err, ex.CONNECT) || !strings.Contains(err.Error(), RECONNECT_EXHAUSTED) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if got := d.n.Load(); got != int32(1+config.MaxReconnectAttempts) {
		t.Fatalf("terminal state must not dial, got %d dials", got)
	}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("explicit connect should recover: %v", err)
	}
	if m.Terminal() != nil || !m.IsConnected() {
		t.Fatal("explicit connect must clear the terminal error")
	}
}

func TestReconnectDisabled(t *testing.T) {
	peer := newTestPeer(t)
	r := newRecorder()
	config := testConfig(peer.endpoint())
	config.MaxReconnectAttempts = -1
	m, d := newManager(config, r)
	defer m.Close()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	peer.dropAll()
	<-r.failed
	time.Sleep(100 * time.Millisecond)
	if d.n.Load() != 1 {
		t.Fatalf("no automatic reconnect expected, got %d dials", d.n.Load())
	}
	// 调用前按需重连
	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.n.Load() != 2 {
		t.Fatalf("lazy connect expected, got %d dials", d.n.Load())
	}
}

func TestCloseStopsEverything(t *testing.T) {
	peer := newTestPeer(t)
	r := newRecorder()
	m, d := newManager(testConfig(peer.endpoint()), r)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Close()
	select {
	case err := <-r.failed:
		if !ex.IsCode(err, ex.CLOSED) {
			t.Fatalf("expected closed error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close must fail pending calls")
	}
	time.Sleep(100 * time.Millisecond)
	if d.n.Load() != 1 {
		t.Fatal("closed manager must not reconnect")
	}
	if err := m.EnsureConnected(context.Background()); !ex.IsCode(err, ex.CLOSED) {
		t.Fatalf("expected closed, got %v", err)
	}
	select {
	case err := <-r.failed:
		t.Fatalf("unexpected second fail all: %v", err)
	default:
	}
}
