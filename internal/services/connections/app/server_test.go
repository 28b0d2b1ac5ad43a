package server

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/request"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/workflow"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("BELONG_CONNECTIONS_DB_PATH", t.TempDir()+"/connections.db")

	srv, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})
	return srv
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := startServer(t)

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial connections server: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := conn.Close(); closeErr != nil {
			t.Fatalf("close gRPC connection: %v", closeErr)
		}
	})

	client := grpc_health_v1.NewHealthClient(conn)
	resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}

	resp, err = client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: "belong.connections"})
	if err != nil {
		t.Fatalf("service health check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("service status = %v, want SERVING", resp.GetStatus())
	}
}

func TestServer_ConnectionLifecycleRoundTrip(t *testing.T) {
	srv := startServer(t)
	service := srv.Service()
	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-2"} {
		if err := service.AddMember(ctx, "community-1", userID); err != nil {
			t.Fatalf("add member %s: %v", userID, err)
		}
	}

	issued, err := service.GetConnectCode(ctx, "user-1", "community-1")
	if err != nil {
		t.Fatalf("get connect code: %v", err)
	}

	reply, err := service.RedeemCode(ctx, "user-2", issued.Code, "en-US")
	if err != nil {
		t.Fatalf("redeem code: %v", err)
	}
	if reply.Outcome != workflow.OutcomeRequestCreated {
		t.Fatalf("outcome = %v, want request created", reply.Outcome)
	}
	if reply.Message == "" || reply.Message == reply.Outcome.MessageCode() {
		t.Fatalf("expected localized message, got %q", reply.Message)
	}

	decision, err := service.ApproveRequest(ctx, "user-1", reply.Request.ID)
	if err != nil {
		t.Fatalf("approve request: %v", err)
	}
	if decision.Request.Status != request.StatusAccepted {
		t.Fatalf("status = %v", decision.Request.Status)
	}

	connections, err := service.ListConnections(ctx, "user-2", "", 10, "")
	if err != nil {
		t.Fatalf("list connections: %v", err)
	}
	if len(connections.Connections) != 1 {
		t.Fatalf("connections = %d, want 1", len(connections.Connections))
	}

	requests, err := service.ListRequests(ctx, "user-1", `status = "ACCEPTED"`, 10, "")
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(requests.Requests) != 1 {
		t.Fatalf("accepted requests = %d, want 1", len(requests.Requests))
	}
}
