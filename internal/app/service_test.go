package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/truckdock/internal/config"
)

type stubService struct {
	name     string
	startErr error
	exitNow  bool

	mu      *sync.Mutex
	stopLog *[]string
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Start(ctx context.Context) error {
	if s.startErr != nil || s.exitNow {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *stubService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.stopLog = append(*s.stopLog, s.name)
	return nil
}

func newStubs(names ...string) ([]Service, *[]string) {
	var mu sync.Mutex
	stopped := make([]string, 0, len(names))
	services := make([]Service, 0, len(names))
	for _, name := range names {
		services = append(services, &stubService{name: name, mu: &mu, stopLog: &stopped})
	}
	return services, &stopped
}

func TestRunnerStopsInReverseOrderOnCancel(t *testing.T) {
	services, stopped := newStubs("resources", "hub", "http")
	runner := NewRunner(services...)
	if strings.Join(runner.Names(), ",") != "resources,hub,http" {
		t.Fatalf("unexpected names: %v", runner.Names())
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancelled run want nil got %v", err)
	}
	if strings.Join(*stopped, ",") != "http,hub,resources" {
		t.Fatalf("want reverse stop order got %v", *stopped)
	}
}

func TestRunnerPropagatesServiceFailure(t *testing.T) {
	services, stopped := newStubs("resources", "worker")
	services[1].(*stubService).startErr = errors.New("redis down")

	err := NewRunner(services...).Run(context.Background(), time.Second, nil)
	if err == nil || !strings.Contains(err.Error(), "worker: redis down") {
		t.Fatalf("want wrapped worker error got %v", err)
	}
	if len(*stopped) != 2 {
		t.Fatalf("want all services stopped got %v", *stopped)
	}
}

func TestRunnerEarlyExitStopsOthers(t *testing.T) {
	services, stopped := newStubs("hub", "sweeper")
	services[1].(*stubService).exitNow = true

	if err := NewRunner(services...).Run(context.Background(), time.Second, nil); err != nil {
		t.Fatalf("clean early exit want nil got %v", err)
	}
	if strings.Join(*stopped, ",") != "sweeper,hub" {
		t.Fatalf("unexpected stop order: %v", *stopped)
	}
}

func TestRunnerRejectsEmptyAndNil(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); !errors.Is(err, ErrNoServices) {
		t.Fatalf("want ErrNoServices got %v", err)
	}
	if err := NewRunner(nil).Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("want error for nil service")
	}
	if err := RunWithOptions(nil, Options{}); err == nil {
		t.Fatalf("want error for nil runner")
	}
}

func TestValidateMode(t *testing.T) {
	for _, mode := range []string{ModeAll, ModeAPI, ModeWorker} {
		if err := ValidateMode(mode); err != nil {
			t.Fatalf("mode %s want valid got %v", mode, err)
		}
	}
	if err := ValidateMode("scheduler"); err == nil {
		t.Fatalf("want error for unknown mode")
	}
	opts := normalizeOptions(Options{})
	if opts.Mode != ModeAll || opts.ShutdownTimeout != defaultShutdownTimeout || opts.Logger == nil {
		t.Fatalf("unexpected normalized options: %+v", opts)
	}
}

func TestHTTPServiceServesAndStops(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "0"}, handler)
	if svc.Addr() != "127.0.0.1:0" {
		t.Fatalf("want configured addr before start got %s", svc.Addr())
	}

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Addr() == "127.0.0.1:0" {
		if time.Now().After(deadline) {
			t.Fatalf("http service did not bind in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", svc.Addr()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", string(body))
	}

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("start should return nil after stop got %v", err)
	}
}

func TestHTTPServiceListenError(t *testing.T) {
	svc := NewHTTPService(config.ServerConfig{Host: "256.0.0.1", Port: "80"}, http.NotFoundHandler())
	if err := svc.Start(context.Background()); err == nil || !strings.Contains(err.Error(), "listen") {
		t.Fatalf("want listen error got %v", err)
	}
}
