package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type mockStreamHandler struct {
	url            string
	onConnectCalls int32
	onMessageCalls int32
}

func (m *mockStreamHandler) URL() string { return m.url }
func (m *mockStreamHandler) ID() string  { return "MOCK" }
func (m *mockStreamHandler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	atomic.AddInt32(&m.onConnectCalls, 1)
	return nil
}
func (m *mockStreamHandler) OnMessage(ctx context.Context, msg []byte) {
	atomic.AddInt32(&m.onMessageCalls, 1)
}

func newStreamServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func httpToWS(url string) string {
	return strings.Replace(url, "http://", "ws://", 1)
}

func TestStreamWorker_Connect(t *testing.T) {
	server := newStreamServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"TRADE_EXECUTED"}`))
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	handler := &mockStreamHandler{url: httpToWS(server.URL)}
	worker := NewStreamWorker(handler)
	worker.ReadTimeout = 500 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	worker.Start(ctx)
	time.Sleep(200 * time.Millisecond)

	worker.Stop()

	if atomic.LoadInt32(&handler.onConnectCalls) == 0 {
		t.Error("OnConnect was not called")
	}
	if atomic.LoadInt32(&handler.onMessageCalls) == 0 {
		t.Error("OnMessage was not called")
	}
}

func TestStreamWorker_GracefulShutdown(t *testing.T) {
	serverClosed := make(chan struct{})
	server := newStreamServer(t, func(conn *websocket.Conn) {
		<-serverClosed
	})
	defer server.Close()
	defer close(serverClosed)

	handler := &mockStreamHandler{url: httpToWS(server.URL)}
	worker := NewStreamWorker(handler)

	worker.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Stop did not return within timeout")
	}
}

func TestStreamWorker_Write(t *testing.T) {
	receivedMsg := make(chan []byte, 1)

	server := newStreamServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			receivedMsg <- msg
		}
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	handler := &mockStreamHandler{url: httpToWS(server.URL)}
	worker := NewStreamWorker(handler)

	worker.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	testMsg := []byte(`{"action":"subscribe"}`)
	if err := worker.Write(websocket.TextMessage, testMsg); err != nil {
		t.Errorf("Write failed: %v", err)
	}

	select {
	case msg := <-receivedMsg:
		if string(msg) != string(testMsg) {
			t.Errorf("expected %s, got %s", testMsg, msg)
		}
	case <-time.After(1 * time.Second):
		t.Error("server did not receive message")
	}

	worker.Stop()
}
