package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyService падает первые fails запусков, затем работает до отмены.
type flakyService struct {
	name   string
	fails  int32
	starts atomic.Int32
}

func (s *flakyService) Serve(ctx context.Context) error {
	if n := s.starts.Add(1); n <= s.fails {
		return errors.New("имитация сбоя")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *flakyService) String() string {
	return s.name
}

func TestNewTree_Defaults(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{})

	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, ожидалось %+v", tree.config, DefaultTreeConfig())
	}
}

func TestTree_RunsAndStops(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{FailureBackoff: 50 * time.Millisecond, ShutdownTimeout: time.Second})

	hub := &flakyService{name: "hub"}
	gen := &flakyService{name: "generator"}
	tree.AddMessagingService(hub)
	tree.AddTaskService(gen)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for (hub.starts.Load() == 0 || gen.starts.Load() == 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.starts.Load() != 1 || gen.starts.Load() != 1 {
		t.Fatalf("запусков hub=%d generator=%d, ожидалось по одному", hub.starts.Load(), gen.starts.Load())
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("дерево не остановилось после отмены контекста")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil || len(report) != 0 {
		t.Errorf("неостановленные сервисы: %v, %v", report, err)
	}
}

func TestTree_RestartsFailedService(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	svc := &flakyService{name: "flaky", fails: 2}
	tree.AddTaskService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for svc.starts.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.starts.Load() < 3 {
		t.Errorf("запусков %d, ожидалось не меньше 3 (два сбоя и работа)", svc.starts.Load())
	}

	cancel()
	<-errCh
}

// stuckService игнорирует отмену контекста до закрытия release.
type stuckService struct {
	release chan struct{}
}

func (s *stuckService) Serve(context.Context) error {
	<-s.release
	return nil
}

func (s *stuckService) String() string {
	return "stuck"
}

func TestTree_LogUnstopped(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: 50 * time.Millisecond})

	stuck := &stuckService{release: make(chan struct{})}
	t.Cleanup(func() { close(stuck.release) })
	tree.AddTaskService(stuck)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("дерево не завершилось после таймаута остановки")
	}

	if names := tree.LogUnstopped(); len(names) == 0 {
		t.Error("LogUnstopped() вернул пустой список, ожидался зависший сервис")
	}
}

func TestTree_LogUnstopped_AllStopped(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{ShutdownTimeout: time.Second})
	tree.AddTaskService(&flakyService{name: "ok"})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-errCh

	if names := tree.LogUnstopped(); len(names) != 0 {
		t.Errorf("LogUnstopped() = %v, ожидался пустой список", names)
	}
}
