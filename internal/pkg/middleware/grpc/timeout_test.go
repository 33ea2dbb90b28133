package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
)

func TestUnaryTimeoutInterceptor(t *testing.T) {
	interceptor := UnaryTimeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Method"}

	var sawDeadline bool
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		_, sawDeadline = ctx.Deadline()
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if !sawDeadline {
		t.Fatal("handler context has no deadline")
	}

	want := time.Now().Add(time.Hour)
	ctx, cancel := context.WithDeadline(context.Background(), want)
	defer cancel()
	_, _ = interceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ := ctx.Deadline()
		if !got.Equal(want) {
			t.Errorf("deadline = %v, want caller deadline %v", got, want)
		}
		return nil, nil
	})
}
