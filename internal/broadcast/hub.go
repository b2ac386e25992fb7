package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrHubOverloaded — очередь рассылки переполнена, сообщение отброшено.
var ErrHubOverloaded = errors.New("очередь рассылки WebSocket переполнена")

// Prometheus-метрики хаба.
var (
	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mc_ws_clients",
		Help: "Количество подключённых WebSocket-клиентов.",
	})
	wsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mc_ws_dropped_total",
		Help: "Отброшенные сообщения и отключённые медленные клиенты.",
	}, []string{"reason"})
)

// Message — сообщение, отправляемое WebSocket-клиенту.
type Message struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Hub хранит подключённых клиентов и рассылает им сообщения по топикам.
// Рассылку выполняет Serve; Publish только ставит сообщение в очередь.
type Hub struct {
	clients   map[*Client]struct{}
	broadcast chan Message
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewHub создаёт хаб с очередью рассылки на 256 сообщений.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan Message, 256),
		logger:    logger.With(slog.String("component", "ws_hub")),
	}
}

// Publish сериализует payload и ставит сообщение в очередь без блокировки.
func (h *Hub) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("сериализация сообщения %s: %w", topic, err)
	}

	select {
	case h.broadcast <- Message{Topic: topic, Data: data}:
		return nil
	default:
		wsDroppedTotal.WithLabelValues("queue_full").Inc()
		return ErrHubOverloaded
	}
}

// Register добавляет клиента в рассылку.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	wsClients.Set(float64(n))
	h.logger.Info("WebSocket-клиент подключён",
		slog.Uint64("client_id", c.id),
		slog.Int("total_clients", n),
	)
}

// Unregister удаляет клиента и закрывает его канал отправки.
// Повторный вызов безопасен.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		wsClients.Set(float64(n))
		h.logger.Info("WebSocket-клиент отключён",
			slog.Uint64("client_id", c.id),
			slog.Int("total_clients", n),
		)
	}
}

// ClientCount возвращает количество подключённых клиентов.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve рассылает сообщения из очереди до отмены контекста.
// При остановке все клиенты отключаются.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			n := h.closeAllClients()
			h.logger.Info("WebSocket-хаб остановлен", slog.Int("clients_closed", n))
			return ctx.Err()
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

func (h *Hub) String() string {
	return "ws-hub"
}

// broadcastToClients отправляет сообщение подписанным клиентам в порядке id.
// Клиент с переполненным буфером отключается.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.subscribed(msg.Topic) {
			clients = append(clients, c)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
			wsDroppedTotal.WithLabelValues("slow_client").Inc()
			h.logger.Warn("Медленный WebSocket-клиент отключён",
				slog.Uint64("client_id", c.id),
			)
		}
	}
	wsClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	wsClients.Set(0)
	return n
}
