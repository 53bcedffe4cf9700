package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/voicepay/voicegate/cmd/voicegate/internal/config"
	"github.com/voicepay/voicegate/pkg/challenge"
	"github.com/voicepay/voicegate/pkg/embedding"
	"github.com/voicepay/voicegate/pkg/enroll"
	"github.com/voicepay/voicegate/pkg/kv"
	"github.com/voicepay/voicegate/pkg/server"
	"github.com/voicepay/voicegate/pkg/session"
	"github.com/voicepay/voicegate/pkg/spoof"
	"github.com/voicepay/voicegate/pkg/storage"
	"github.com/voicepay/voicegate/pkg/transcript"
)

var (
	flagConfig string
	flagListen string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification server",
	Long: `Run the voicegate verification server.

The server exposes:
  POST /v1/sessions          start a challenge session
  POST /v1/attempts          submit one spoken challenge attempt
  POST /v1/signatures        create a voice signature
  GET  /v1/attempts/stream   stream attempt audio over a websocket
  GET  /healthz              liveness probe

Example:
  voicegate serve --config /etc/voicegate/config.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&flagConfig, "config", "f", "", "configuration file (required)")
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (overrides config)")
	serveCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}

	catalog := challenge.Default()
	if cfg.PromptsFile != "" {
		catalog, err = challenge.Load(cfg.PromptsFile)
		if err != nil {
			return err
		}
	}

	artifacts, err := newBlobStore(cfg.Storage.Artifacts)
	if err != nil {
		return fmt.Errorf("storage.artifacts: %w", err)
	}
	keys, err := newBlobStore(cfg.Storage.Keys)
	if err != nil {
		return fmt.Errorf("storage.keys: %w", err)
	}

	var records kv.Store
	if cfg.Registry.Dir != "" {
		records, err = kv.NewBadger(kv.BadgerOptions{Dir: cfg.Registry.Dir})
		if err != nil {
			return fmt.Errorf("registry: %w", err)
		}
	} else {
		logger.Warn("registry.dir not set, enrollment records are in-memory only")
		records = kv.NewMemory()
	}
	defer records.Close()

	var embedOpts []embedding.Option
	if cfg.Embedding.Dimension > 0 {
		embedOpts = append(embedOpts, embedding.WithDimension(cfg.Embedding.Dimension))
	}
	embedder := embedding.NewHTTP(cfg.Embedding.Endpoint, cfg.Embedding.APIKey, embedOpts...)

	registry := enroll.NewRegistry(records)
	matcher := enroll.NewMatcher(registry, artifacts, keys, embedder, enroll.MatcherConfig{
		Threshold: cfg.Matcher.Threshold,
		MinVotes:  cfg.Matcher.MinVotes,
	}, logger)

	var whisperOpts []transcript.WhisperOption
	if cfg.Transcription.Model != "" {
		whisperOpts = append(whisperOpts, transcript.WithModel(cfg.Transcription.Model))
	}
	if cfg.Transcription.BaseURL != "" {
		whisperOpts = append(whisperOpts, transcript.WithBaseURL(cfg.Transcription.BaseURL))
	}
	transcriber := transcript.NewWhisper(cfg.Transcription.APIKey, whisperOpts...)

	idleTimeout := session.DefaultIdleTimeout
	if cfg.IdleTimeoutSeconds > 0 {
		idleTimeout = time.Duration(cfg.IdleTimeoutSeconds) * time.Second
	}
	sessions := session.NewStore(idleTimeout)
	defer sessions.Close()

	machine, err := session.NewMachine(session.Deps{
		Catalog:     catalog,
		Gate:        spoof.NewHTTP(cfg.Spoof.Endpoint, cfg.Spoof.APIKey),
		Transcriber: transcriber,
		Retry:       transcript.RetryPolicy{MaxAttempts: cfg.Transcription.MaxAttempts},
		Artifacts:   artifacts,
		Keys:        keys,
		Registry:    registry,
		Matcher:     matcher,
		Sessions:    sessions,
		Logger:      logger,
	}, session.Config{})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(machine, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newBlobStore builds a blob store from its config block.
func newBlobStore(cfg config.BlobConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return storage.NewLocal(cfg.Dir)
	case "s3":
		opts := s3.Options{Region: cfg.Region}
		if cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Endpoint)
			opts.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			creds := aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			}
			opts.Credentials = aws.CredentialsProviderFunc(
				func(context.Context) (aws.Credentials, error) { return creds, nil })
		}
		return storage.NewS3(s3.New(opts), cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
