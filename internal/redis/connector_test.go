package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/MrSnakeDoc/portal/internal/logger"
)

func validOptions(addr string) ConnectOptions {
	return ConnectOptions{
		Addr:           addr,
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		DialTimeout:    50 * time.Millisecond,
	}
}

func TestConnectOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConnectOptions)
	}{
		{name: "missing addr", mutate: func(o *ConnectOptions) { o.Addr = "" }},
		{name: "connect timeout", mutate: func(o *ConnectOptions) { o.ConnectTimeout = 0 }},
		{name: "retry interval", mutate: func(o *ConnectOptions) { o.RetryInterval = 0 }},
		{name: "max wait", mutate: func(o *ConnectOptions) { o.MaxWait = -time.Second }},
		{name: "ping timeout", mutate: func(o *ConnectOptions) { o.PingTimeout = 0 }},
	}

	if err := validOptions("localhost:6379").Validate(); err != nil {
		t.Fatalf("Validate() error = %v for valid options", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions("localhost:6379")
			tt.mutate(&opts)
			if err := opts.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestConnectGivesUp(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve a port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	start := time.Now()
	client, err := Connect(context.Background(), validOptions(addr), logger.New("error", false))
	if err == nil {
		client.Close()
		t.Fatal("Connect() to a closed port should fail")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Connect() took %v, should give up after ConnectTimeout", time.Since(start))
	}
}

func TestNextWait(t *testing.T) {
	if got := nextWait(20*time.Millisecond, time.Second); got != 40*time.Millisecond {
		t.Errorf("nextWait() = %v, want 40ms", got)
	}
	if got := nextWait(800*time.Millisecond, time.Second); got != time.Second {
		t.Errorf("nextWait() = %v, want capped at 1s", got)
	}
}
