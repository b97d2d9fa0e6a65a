package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	sm.Register("database", record("database"))
	sm.Register("sessions", record("sessions"))

	if err := sm.Shutdown(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "sessions,database" {
		t.Errorf("Expected reverse order, got %v", order)
	}
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), time.Second)
	sm.Register("broken", func(ctx context.Context) error { return errors.New("flush failed") })
	sm.Register("fine", func(ctx context.Context) error { return nil })

	err := sm.Shutdown()
	if err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Fatalf("Expected joined error, got %v", err)
	}
}

func TestShutdownManager_DrainsServers(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Start()
	defer srv.Close()

	sm := NewShutdownManager(NopLogger(), time.Second)
	sm.AddServer(srv.Config)

	if err := sm.Shutdown(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestShutdownManager_WaitForSignalContext(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sm.WaitForSignal(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestRecoverPanic(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer RecoverPanic(NopLogger(), "test goroutine")
		panic("boom")
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}
}
