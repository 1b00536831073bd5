package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/internal/servicehost"
	"github.com/marmos91/capfabric/pkg/admission"
	"github.com/marmos91/capfabric/pkg/breaker"
	"github.com/marmos91/capfabric/pkg/config"
	"github.com/marmos91/capfabric/pkg/delegation"
	"github.com/marmos91/capfabric/pkg/eventbus"
	"github.com/marmos91/capfabric/pkg/keyset"
	"github.com/marmos91/capfabric/pkg/rpc"
	"github.com/marmos91/capfabric/pkg/tlsconfig"
	"github.com/marmos91/capfabric/pkg/token"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Event Bus gRPC server",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	ctx := context.Background()

	obs, err := servicehost.InitObservability(ctx, cfg, "eventbusd", Version)
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

	// Publish mutates the topic's sequence counter and Subscribe is a
	// long-lived stream: neither is cacheable.
	pipeline := admission.New(cfg.Service.Name, verifier, delegationVerifier, brk, nil)

	creds, err := tlsconfig.ServerCredentials(cfg.TLS.CertsDir)
	if err != nil {
		return fmt.Errorf("load server credentials: %w", err)
	}

	rdb := redis.NewClient(redisOptions(cfg.Redis.URL))
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	broker := eventbus.NewBroker(rdb)
	eventBusSrv := eventbus.NewServer(broker)

	grpcServer := grpc.NewServer(
		grpc.Creds(creds),
		grpc.UnaryInterceptor(pipeline.UnaryInterceptor()),
		grpc.StreamInterceptor(pipeline.StreamInterceptor()),
	)
	rpc.RegisterEventBusServer(grpcServer, eventBusSrv)

	logger.Info("eventbusd starting", "address", cfg.Service.ListenAddress, "issuer", cfg.Auth.Issuer)
	return servicehost.Serve(grpcServer, cfg.Service.ListenAddress, cfg.ShutdownTimeout)
}

func redisOptions(url string) *redis.Options {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return &redis.Options{Addr: url}
	}
	return opts
}
