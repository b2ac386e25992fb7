package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher публикует события в NATS core (без JetStream).
// Subject = префикс + путь топика с заменой "/" на ".",
// например moviecatalog.topic.movies.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSPublisher подключается к NATS по url.
// Недоступный при старте сервер не ошибка: клиент переподключается сам.
func NewNATSPublisher(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logger.With(slog.String("component", "nats_publisher"))

	nc, err := nats.Connect(url,
		nats.Name("movie-catalog"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Соединение с NATS потеряно", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("Соединение с NATS восстановлено", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger}, nil
}

// Subject возвращает subject NATS для топика.
func (p *NATSPublisher) Subject(topic string) string {
	path := strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
	if p.prefix == "" {
		return path
	}
	return p.prefix + "." + path
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("сериализация сообщения %s: %w", topic, err)
	}
	if err := p.nc.Publish(p.Subject(topic), data); err != nil {
		return fmt.Errorf("публикация в NATS %s: %w", topic, err)
	}
	return nil
}

// Close дожидается отправки буфера и закрывает соединение.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("Ошибка drain NATS", slog.String("error", err.Error()))
		p.nc.Close()
	}
}
