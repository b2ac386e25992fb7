package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startHub запускает Serve и останавливает его по окончании теста.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("сообщение не получено за 1s")
		return Message{}
	}
}

func TestHub_PublishToSubscribers(t *testing.T) {
	hub := startHub(t)

	all := NewClient(hub, nil, nil)
	movies := NewClient(hub, nil, []string{TopicMovies})
	charts := NewClient(hub, nil, []string{TopicCategoryCounts, TopicCategoryRatings})
	for _, c := range []*Client{all, movies, charts} {
		hub.Register(c)
	}
	if n := hub.ClientCount(); n != 3 {
		t.Fatalf("ClientCount() = %d, ожидалось 3", n)
	}

	if err := hub.Publish(context.Background(), TopicMovies, map[string]any{"id": 7}); err != nil {
		t.Fatalf("Publish() вернул ошибку: %v", err)
	}

	for _, c := range []*Client{all, movies} {
		msg := receive(t, c)
		if msg.Topic != TopicMovies {
			t.Errorf("Topic = %q, ожидался %q", msg.Topic, TopicMovies)
		}
		if string(msg.Data) != `{"id":7}` {
			t.Errorf("Data = %s, ожидался {\"id\":7}", msg.Data)
		}
	}

	select {
	case msg := <-charts.send:
		t.Errorf("клиент без подписки на %s получил %+v", TopicMovies, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishMarshalError(t *testing.T) {
	hub := NewHub(discardLogger())
	if err := hub.Publish(context.Background(), TopicMovies, make(chan int)); err == nil {
		t.Error("Publish() несериализуемого значения не вернул ошибку")
	}
}

func TestHub_PublishQueueFull(t *testing.T) {
	hub := NewHub(discardLogger())

	// Serve не запущен — очередь заполняется
	for i := 0; i < cap(hub.broadcast); i++ {
		if err := hub.Publish(context.Background(), TopicMovies, i); err != nil {
			t.Fatalf("Publish() #%d вернул ошибку: %v", i, err)
		}
	}
	err := hub.Publish(context.Background(), TopicMovies, "lost")
	if !errors.Is(err, ErrHubOverloaded) {
		t.Errorf("Publish() при полной очереди = %v, ожидался ErrHubOverloaded", err)
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := NewHub(discardLogger())
	slow := NewClient(hub, nil, nil)
	hub.Register(slow)

	msg := Message{Topic: TopicMovies, Data: json.RawMessage(`1`)}
	for i := 0; i <= sendBuffer; i++ {
		hub.broadcastToClients(msg)
	}

	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, медленный клиент должен быть отключён", n)
	}

	// Канал закрыт после вычитывания буфера
	drained := 0
	for range slow.send {
		drained++
	}
	if drained != sendBuffer {
		t.Errorf("в буфере %d сообщений, ожидалось %d", drained, sendBuffer)
	}

	// Повторный Unregister безопасен
	hub.Unregister(slow)
}

func TestHub_ServeStopsAndClosesClients(t *testing.T) {
	hub := NewHub(discardLogger())
	c := NewClient(hub, nil, nil)
	hub.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Serve(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, ожидался context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() не завершился после отмены контекста")
	}

	if _, ok := <-c.send; ok {
		t.Error("канал клиента не закрыт при остановке хаба")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, ожидалось 0", n)
	}
}

// TestHub_WebSocketEndToEnd проверяет доставку через настоящее WebSocket-соединение.
func TestHub_WebSocketEndToEnd(t *testing.T) {
	hub := startHub(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn, r.URL.Query()["topic"]).Start()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=" + TopicCategoryCounts
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() вернул ошибку: %v", err)
	}
	defer conn.Close()

	// Ждём регистрации клиента
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, ожидался 1", hub.ClientCount())
	}

	ctx := context.Background()
	_ = hub.Publish(ctx, TopicMovies, map[string]string{"title": "skip"})
	_ = hub.Publish(ctx, TopicCategoryCounts, map[string]int64{"Drama": 2})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Topic string           `json:"topic"`
		Data  map[string]int64 `json:"data"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() вернул ошибку: %v", err)
	}
	if got.Topic != TopicCategoryCounts {
		t.Errorf("Topic = %q, ожидался %q", got.Topic, TopicCategoryCounts)
	}
	if got.Data["Drama"] != 2 {
		t.Errorf("Data = %v, ожидалось Drama=2", got.Data)
	}

	// Закрытие на стороне клиента снимает регистрацию
	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d после закрытия, ожидался 0", hub.ClientCount())
	}
}
