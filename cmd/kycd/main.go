package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/smartkyc/internal/analysis"
	"github.com/danielpatrickdp/smartkyc/internal/api"
	"github.com/danielpatrickdp/smartkyc/internal/codec"
	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/intel"
	"github.com/danielpatrickdp/smartkyc/internal/orchestrator"
	"github.com/danielpatrickdp/smartkyc/internal/store"
)

// #region main
func main() {
	if err := run(); err != nil {
		log.Fatalf("[kycd] %v", err)
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run() error {
	dbPath := envOr("KYC_DB", "smartkyc.db")
	httpAddr := envOr("KYC_HTTP_ADDR", ":8000")
	grpcAddr := envOr("KYC_GRPC_ADDR", "")
	analyzerKind := envOr("KYC_ANALYZER", "frame")
	analyzerAddr := envOr("KYC_ANALYZER_ADDR", "localhost:50051")
	intelDelay := envBool("KYC_INTEL_DELAY", false)
	uploadMB := envInt("KYC_UPLOAD_LIMIT_MB", 10)

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	analyzer, closeAnalyzer, err := newAnalyzer(analyzerKind, analyzerAddr)
	if err != nil {
		return fmt.Errorf("set up analyzer: %w", err)
	}
	defer closeAnalyzer()

	intelConfig := intel.InstantConfig()
	if intelDelay {
		intelConfig = intel.DefaultConfig()
	}
	engine := intel.NewEngine(intelConfig, time.Now().UnixNano())

	svc := orchestrator.NewService(st, analyzer, gate.NewGate(gate.DefaultThresholds()), engine)
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           api.NewServer(svc, int64(uploadMB)<<20).NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Buffered for both servers so a failing goroutine never blocks.
	serveErr := make(chan error, 2)

	var grpcServer *grpc.Server
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		grpcServer = grpc.NewServer()
		codec.RegisterAnalysisServer(grpcServer, analysis.NewFrameAnalyzer(analysis.DefaultFrameConfig()))
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				serveErr <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	fmt.Println("SmartKYC controller ready.")
	fmt.Printf("  DB: %s | HTTP: %s | gRPC: %s | Analyzer: %s\n", dbPath, httpAddr, orNone(grpcAddr), analyzerKind)

	runErr := waitForShutdown(ctx, serveErr)
	log.Println("[kycd] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[kycd] http shutdown: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return runErr
}

// waitForShutdown blocks until ctx is cancelled or a server reports a fatal
// error, returning that error.
func waitForShutdown(ctx context.Context, serveErr <-chan error) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-serveErr:
		return err
	}
}

// #endregion main

// #region analyzer
// newAnalyzer selects the frame analyzer: "frame" measures pixels locally,
// "random" draws demo metrics, "remote" calls a gRPC analysis service.
func newAnalyzer(kind, addr string) (analysis.Analyzer, func(), error) {
	switch kind {
	case "frame":
		return analysis.NewFrameAnalyzer(analysis.DefaultFrameConfig()), func() {}, nil
	case "random":
		return analysis.NewRandomAnalyzer(time.Now().UnixNano()), func() {}, nil
	case "remote":
		client, err := codec.NewClient(addr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to analysis service at %s: %w", addr, err)
		}
		return client, func() { client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown analyzer %q (want frame, random or remote)", kind)
}

// #endregion analyzer

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func orNone(s string) string {
	if s == "" {
		return "off"
	}
	return s
}

// #endregion helpers
