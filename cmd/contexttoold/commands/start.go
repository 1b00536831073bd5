package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/internal/servicehost"
	"github.com/marmos91/capfabric/pkg/admission"
	"github.com/marmos91/capfabric/pkg/breaker"
	"github.com/marmos91/capfabric/pkg/config"
	"github.com/marmos91/capfabric/pkg/contexttool"
	"github.com/marmos91/capfabric/pkg/delegation"
	"github.com/marmos91/capfabric/pkg/keyset"
	"github.com/marmos91/capfabric/pkg/rpc"
	"github.com/marmos91/capfabric/pkg/rpccache"
	"github.com/marmos91/capfabric/pkg/tlsconfig"
	"github.com/marmos91/capfabric/pkg/token"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Context/Tool gRPC server",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	ctx := context.Background()

	obs, err := servicehost.InitObservability(ctx, cfg, "contexttoold", Version)
	if err != nil {
		return err
	}
	defer obs.Shutdown(ctx)

	keys, err := keyset.New(ctx, cfg.Auth.Issuer+"/.well-known/jwks.json", cfg.Auth.JWKSTTL)
	if err != nil {
		return fmt.Errorf("init key set cache: %w", err)
	}

	verifier := token.NewVerifier(keys, token.Config{Issuer: cfg.Auth.Issuer, ClockSkew: cfg.Auth.ClockSkew})
	delegationVerifier := delegation.NewVerifier(verifier)
	brk := breaker.New(breaker.Config{Threshold: cfg.Breaker.FailureThreshold, RecoveryTime: cfg.Breaker.RecoveryTimeout})

	// RequestContext results depend only on context_key, not on caller
	// identity: cacheable across callers, per the admission pipeline's
	// cacheability invariant.
	cache := rpccache.New(cfg.Cache.TTL)

	pipeline := admission.New(cfg.Service.Name, verifier, delegationVerifier, brk, cache)

	creds, err := tlsconfig.ServerCredentials(cfg.TLS.CertsDir)
	if err != nil {
		return fmt.Errorf("load server credentials: %w", err)
	}

	store, err := contexttool.NewStore(cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("init context store: %w", err)
	}

	rdb := redis.NewClient(redisOptions(cfg.Redis.URL))
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	telemetryBridge := contexttool.NewTelemetryBridge(rdb)

	if cfg.DemoTelemetry {
		go runDemoTelemetryPusher(ctx, telemetryBridge)
	}

	contextToolSrv := contexttool.NewServer(store, telemetryBridge)

	grpcServer := grpc.NewServer(
		grpc.Creds(creds),
		grpc.UnaryInterceptor(pipeline.UnaryInterceptor()),
		grpc.StreamInterceptor(pipeline.StreamInterceptor()),
	)
	rpc.RegisterContextToolServer(grpcServer, contextToolSrv)

	logger.Info("contexttoold starting", "address", cfg.Service.ListenAddress, "issuer", cfg.Auth.Issuer)
	return servicehost.Serve(grpcServer, cfg.Service.ListenAddress, cfg.ShutdownTimeout)
}

// runDemoTelemetryPusher periodically publishes a synthetic engine_temp
// reading, standing in for whatever real telemetry source would otherwise
// feed fleet123:engine_temp.
func runDemoTelemetryPusher(ctx context.Context, bridge *contexttool.TelemetryBridge) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			payload := fmt.Appendf(nil, `{"engine_temp": %d}`, 65+t.Second()%10)
			if err := bridge.Publish(ctx, "fleet123:engine_temp", payload); err != nil {
				logger.Warn("demo telemetry publish failed", "error", err)
			}
		}
	}
}

func redisOptions(url string) *redis.Options {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return &redis.Options{Addr: url}
	}
	return opts
}
