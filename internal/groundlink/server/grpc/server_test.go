package grpc

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/groundlink/pkg/options"
)

type fakeConn struct{ up atomic.Bool }

func (c *fakeConn) IsConnected() bool { return c.up.Load() }

func TestHealthFollowsBroker(t *testing.T) {
	conn := &fakeConn{}
	s := NewServer(options.NewGrpcOptions(), conn)
	fc := testingclock.NewFakeClock(time.Now())
	s.clock = fc

	lis := bufconn.Listen(1 << 16)
	go s.server.Serve(lis)
	t.Cleanup(s.server.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.watch(ctx)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cc.Close() })
	client := healthpb.NewHealthClient(cc)

	check := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
			if err == nil && resp.GetStatus() == want {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("status = %v, err = %v, want %v", resp.GetStatus(), err, want)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	check(healthpb.HealthCheckResponse_NOT_SERVING)

	conn.up.Store(true)
	for !fc.HasWaiters() {
		time.Sleep(time.Millisecond)
	}
	fc.Step(watchInterval)
	check(healthpb.HealthCheckResponse_SERVING)
}

func TestDisabledServerBlocksUntilDone(t *testing.T) {
	opts := options.NewGrpcOptions()
	opts.Enabled = false
	s := NewServer(opts, &fakeConn{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return")
	}
}
