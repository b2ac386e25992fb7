package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bigkaa/moviecatalog/internal/broadcast"
)

const testOrigin = "http://localhost:3000"

func startWS(t *testing.T) (*broadcast.Hub, *httptest.Server) {
	t.Helper()
	hub := broadcast.NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Serve(ctx) }()
	t.Cleanup(cancel)

	srv := httptest.NewServer(NewWSHandler(hub, testOrigin, discardLogger()))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func TestWS_SubscribeAndReceive(t *testing.T) {
	hub, srv := startWS(t)

	header := http.Header{"Origin": []string{testOrigin}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?topic="+broadcast.TopicMovies), header)
	if err != nil {
		t.Fatalf("Dial() вернул ошибку: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	_ = hub.Publish(context.Background(), broadcast.TopicMovies, map[string]string{"title": "Movie"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Topic string            `json:"topic"`
		Data  map[string]string `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() вернул ошибку: %v", err)
	}
	if msg.Topic != broadcast.TopicMovies || msg.Data["title"] != "Movie" {
		t.Errorf("сообщение = %+v", msg)
	}
}

func TestWS_ForeignOriginRejected(t *testing.T) {
	_, srv := startWS(t)

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	if err == nil {
		t.Fatal("соединение с чужого origin должно быть отклонено")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("ответ = %v, ожидался 403", resp)
	}
}

func TestWS_UnknownTopic(t *testing.T) {
	_, srv := startWS(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?topic=/topic/unknown"), nil)
	if err == nil {
		t.Fatal("подписка на неизвестный топик должна быть отклонена")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("ответ = %v, ожидался 400", resp)
	}
}
