package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
)

func TestUnaryServerTimeoutInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/fleetpeer.v1.FleetService/ListVehicles"}

	tests := []struct {
		name     string
		timeout  time.Duration
		deadline time.Duration
		want     time.Duration
	}{
		{name: "applies configured timeout", timeout: 3 * time.Second, want: 3 * time.Second},
		{name: "falls back to default", timeout: 0, want: DefaultRPCTimeout},
		{name: "keeps caller deadline", timeout: 3 * time.Second, deadline: time.Minute, want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.deadline > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.deadline)
				defer cancel()
			}

			var remaining time.Duration
			handler := func(ctx context.Context, _ any) (any, error) {
				dl, ok := ctx.Deadline()
				if !ok {
					t.Fatal("handler context has no deadline")
				}
				remaining = time.Until(dl)
				return nil, nil
			}

			if _, err := UnaryServerTimeoutInterceptor(tt.timeout)(ctx, nil, info, handler); err != nil {
				t.Fatalf("interceptor returned %v", err)
			}
			if remaining > tt.want || remaining < tt.want-time.Second {
				t.Errorf("remaining = %v, want about %v", remaining, tt.want)
			}
		})
	}
}
