package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shortsfactory/api"
	"shortsfactory/config"
	"shortsfactory/jobs"
	"shortsfactory/kafka"
	"shortsfactory/scheduler"
	"shortsfactory/topics"
	"shortsfactory/types"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	setupLogging()

	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	kafkaMode := flag.Bool("kafka", false, "Consume job requests from Kafka instead of serving the API")
	once := flag.Bool("once", false, "Run a single job from flags and exit")
	topic := flag.String("topic", "", "Topic for -once")
	duration := flag.Int("duration", 30, "Target duration in seconds for -once")
	style := flag.String("style", "normal", "Narration style for -once: normal, dark or money")
	imageMode := flag.String("images", "stock", "Image mode for -once: stock or synth")
	scenes := flag.Int("scenes", 0, "Force this many scenes for -once (0 = one per script line)")
	publish := flag.Bool("publish", false, "Publish the video for -once")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	switch {
	case *once:
		job := types.Job{
			Topic:        *topic,
			DurationHint: *duration,
			Style:        types.Style(*style),
			ImageMode:    types.ImageMode(*imageMode),
			SceneCount:   *scenes,
			Publish:      *publish,
		}
		os.Exit(runOnce(ctx, cfg, p, job))
	case *kafkaMode:
		if err := runKafka(ctx, cfg, p); err != nil {
			log.Fatal().Err(err).Msg("kafka worker stopped")
		}
	default:
		if err := runServer(ctx, cfg, p); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("LOG_FORMAT") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// newStore returns a Redis-backed store when REDIS_ADDR is set.
func newStore(cfg *config.Config) jobs.Store {
	if cfg.Redis.Addr == "" {
		return jobs.NewMemoryStore()
	}
	store, err := jobs.NewRedisStore(jobs.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      config.JobStatusTTL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, keeping job status in memory")
		return jobs.NewMemoryStore()
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("job status stored in redis")
	return store
}

func runOnce(ctx context.Context, cfg *config.Config, runner jobs.Runner, job types.Job) int {
	m := jobs.NewManager(runner, jobs.NewMemoryStore(), nil, jobs.OptionsFromConfig(cfg))
	st, err := m.Run(ctx, job)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	switch st.State {
	case types.JobCompleted:
		fmt.Printf("Video: %s (%.2fs)\n", st.Artifact.Path, st.Artifact.Duration)
		if st.Artifact.VideoID != "" {
			fmt.Printf("Published: https://youtube.com/shorts/%s\n", st.Artifact.VideoID)
		}
		if st.Error != "" {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", st.Error)
		}
		return 0
	case types.JobCanceled:
		fmt.Fprintln(os.Stderr, "Canceled")
		return 130
	default:
		fmt.Fprintf(os.Stderr, "Failed: %s\n", st.Error)
		return 1
	}
}

func runServer(ctx context.Context, cfg *config.Config, runner jobs.Runner) error {
	var notifier jobs.Notifier
	if producer := newProducer(cfg); producer != nil {
		defer producer.Close()
		notifier = producer
	}
	m := jobs.NewManager(runner, newStore(cfg), notifier, jobs.OptionsFromConfig(cfg))

	var topicSvc api.TopicService
	if len(cfg.Schedule.Feeds) > 0 {
		sched := scheduler.New(cfg.Schedule, topics.NewFeedSource(30*time.Second), newSeen(cfg), m)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop(context.Background())
		topicSvc = sched
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: api.NewRouter(m, topicSvc),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting API server")
		log.Info().Msg("API endpoints: POST/GET /api/jobs, GET/DELETE /api/jobs/:id, GET /api/jobs/:id/video, GET /api/topics, POST /api/topics/refresh, GET /api/health")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	return m.Shutdown(shutdownCtx)
}

func runKafka(ctx context.Context, cfg *config.Config, runner jobs.Runner) error {
	var notifier jobs.Notifier
	if producer := newProducer(cfg); producer != nil {
		defer producer.Close()
		notifier = producer
	}
	m := jobs.NewManager(runner, newStore(cfg), notifier, jobs.OptionsFromConfig(cfg))

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.RequestsTopic,
		GroupID: cfg.Kafka.GroupID,
		Handler: kafka.NewJobRequestHandler(m),
	})
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return m.Shutdown(shutdownCtx)
}

func newProducer(cfg *config.Config) *kafka.Producer {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.ResultsTopic == "" {
		return nil
	}
	p, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic)
	if err != nil {
		log.Warn().Err(err).Msg("kafka unavailable, job results will not be published")
		return nil
	}
	return p
}

func newSeen(cfg *config.Config) topics.Seen {
	if cfg.Redis.Addr == "" {
		return topics.NewMemorySeen()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return topics.NewRedisSeen(client, 7*24*time.Hour)
}
