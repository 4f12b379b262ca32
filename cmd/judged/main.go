// Command judged runs the judge daemon: it resolves problems and
// toolchains, drives submissions through the compiler and test executor,
// and serves job status over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jjs-dev/judge/internal/auditlog"
	"github.com/jjs-dev/judge/internal/compiler"
	"github.com/jjs-dev/judge/internal/config"
	"github.com/jjs-dev/judge/internal/invoker"
	"github.com/jjs-dev/judge/internal/jobmirror"
	"github.com/jjs-dev/judge/internal/judge"
	"github.com/jjs-dev/judge/internal/logging"
	"github.com/jjs-dev/judge/internal/metrics"
	"github.com/jjs-dev/judge/internal/observability"
	"github.com/jjs-dev/judge/internal/problemloader"
	"github.com/jjs-dev/judge/internal/restapi"
	"github.com/jjs-dev/judge/internal/testexec"
	"github.com/jjs-dev/judge/internal/toolchainloader"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "judged",
		Short: "judged runs the judging daemon",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a JSON config file (optional, env vars override)")
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API and begin accepting jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logging.SetLevelFromString(cfg.Logging.Level)
			logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)

			if err := observability.Init(context.Background(), observability.Config{
				Enabled:     cfg.Tracing.Enabled,
				Exporter:    cfg.Tracing.Exporter,
				Endpoint:    cfg.Tracing.Endpoint,
				ServiceName: cfg.Tracing.ServiceName,
				SampleRate:  cfg.Tracing.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			var m *metrics.Metrics
			if cfg.Metrics.Enabled {
				m = metrics.Init(cfg.Metrics.Namespace)
			}

			registries, err := buildRegistries(cfg)
			if err != nil {
				return err
			}

			clients := &judge.Clients{
				Problems:   problemloader.New(cfg.ProblemsCacheDir, registries...),
				Toolchains: toolchainloader.New(cfg.ToolchainsDir),
				Compiler:   compiler.New(invoker.New(invoker.NewPool(cfg.InvokerAddr))),
				Executor:   testexec.New(invoker.New(invoker.NewPool(cfg.InvokerAddr)), testexec.Settings{CheckerLogsDir: cfg.CheckerLogsDir}),
			}

			state := restapi.NewState(clients, judge.Settings{CheckerLogsDir: cfg.CheckerLogsDir})

			ctx := context.Background()
			audit, err := auditlog.New(ctx, cfg.AuditPostgresDSN, auditlog.Config{})
			if err != nil {
				logging.Op().Warn("auditlog init failed, continuing without it", "error", err)
				audit = nil
			}
			defer audit.Shutdown(10 * time.Second)

			mirror, err := jobmirror.New(ctx, jobmirror.Config{Addr: cfg.RedisAddr})
			if err != nil {
				logging.Op().Warn("jobmirror init failed, continuing without it", "error", err)
				mirror = nil
			}
			defer mirror.Close()

			state.OnComplete(func(job *restapi.Job) {
				outcome := "success"
				if job.Err != nil {
					outcome = "fault"
				}
				audit.Enqueue(auditlog.Record{
					JobID:       job.ID.String(),
					Outcome:     outcome,
					CompletedAt: time.Now(),
				})
				entry := jobmirror.Entry{Completed: true}
				if job.Err != nil {
					entry.Err = *job.Err
				}
				mirror.Put(context.Background(), job.ID.String(), entry)
			})

			httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: state.Mux(m)}
			go func() {
				logging.Op().Info("judge daemon HTTP API started", "addr", cfg.HTTPAddr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logging.Op().Error("http server failed", "error", err)
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logging.Op().Info("shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}

func buildRegistries(cfg *config.Config) ([]problemloader.Registry, error) {
	var registries []problemloader.Registry
	if cfg.ProblemsDir != "" {
		registries = append(registries, problemloader.NewFsRegistry(cfg.ProblemsDir))
	}
	if cfg.ProblemsMongoURI != "" {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.ProblemsMongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo registry: %w", err)
		}
		registries = append(registries, problemloader.NewMongoRegistry(client.Database("jjs")))
	}
	if cfg.ProblemsS3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		registries = append(registries, problemloader.NewS3Registry(s3.NewFromConfig(awsCfg), cfg.ProblemsS3Bucket))
	}
	return registries, nil
}
