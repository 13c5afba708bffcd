package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration. Non-secret values may come from a YAML
// file; secrets and infrastructure addresses come from the environment.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Script    ScriptConfig    `yaml:"script"`
	Assets    AssetsConfig    `yaml:"assets"`
	Narration NarrationConfig `yaml:"narration"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Upload    UploadConfig    `yaml:"upload"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Paths     PathsConfig     `yaml:"paths"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Storage   StorageConfig   `yaml:"storage"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type ScriptConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	GroqAPIKey  string  `yaml:"-"`
	CohereKey   string  `yaml:"-"`
}

type AssetsConfig struct {
	Candidates int    `yaml:"candidates"`
	Concurrent int    `yaml:"concurrent"`
	PexelsKey  string `yaml:"-"`
}

type NarrationConfig struct {
	Provider      string `yaml:"provider"`
	Voice         string `yaml:"voice"`
	Model         string `yaml:"model"`
	EdgeTTSBinary string `yaml:"edge_tts_binary"`
	ElevenLabsKey string `yaml:"-"`
}

type TimelineConfig struct {
	// Policy is "uniform" or "weighted".
	Policy string `yaml:"policy"`
}

type UploadConfig struct {
	Privacy            string        `yaml:"privacy"`
	CategoryID         string        `yaml:"category_id"`
	Timeout            time.Duration `yaml:"timeout"`
	ClientID           string        `yaml:"-"`
	ClientSecret       string        `yaml:"-"`
	RefreshToken       string        `yaml:"-"`
	ServiceAccountFile string        `yaml:"-"`
}

// Enabled reports whether any YouTube credentials are configured.
func (u UploadConfig) Enabled() bool {
	return u.ServiceAccountFile != "" || (u.ClientID != "" && u.ClientSecret != "" && u.RefreshToken != "")
}

type JobsConfig struct {
	MaxConcurrent   int           `yaml:"max_concurrent"`
	MaxQueued       int           `yaml:"max_queued"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	KeepWorkDir     bool          `yaml:"keep_work_dir"`
}

type PathsConfig struct {
	Work   string `yaml:"work"`
	Output string `yaml:"output"`
}

// ScheduleConfig drives cron-triggered jobs from RSS topics.
type ScheduleConfig struct {
	Feeds        []string `yaml:"feeds"`
	Cron         string   `yaml:"cron"`
	PerRun       int      `yaml:"per_run"`
	DurationHint int      `yaml:"duration_hint"`
	Style        string   `yaml:"style"`
	Publish      bool     `yaml:"publish"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	RequestsTopic string   `yaml:"requests_topic"`
	ResultsTopic  string   `yaml:"results_topic"`
	GroupID       string   `yaml:"group_id"`
}

type StorageConfig struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Default returns a configuration that runs locally without any YAML file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Script: ScriptConfig{
			Provider:    "groq",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.8,
		},
		Assets: AssetsConfig{
			Candidates: DefaultCandidates,
			Concurrent: MaxConcurrentScenes,
		},
		Narration: NarrationConfig{
			Provider:      "elevenlabs",
			Voice:         "21m00Tcm4TlvDq8ikWAM",
			Model:         "eleven_monolingual_v1",
			EdgeTTSBinary: "edge-tts",
		},
		Timeline: TimelineConfig{Policy: "uniform"},
		Upload: UploadConfig{
			Privacy:    YouTubePrivacyStatus,
			CategoryID: YouTubeCategoryID,
			Timeout:    DefaultPublishTimeout,
		},
		Jobs: JobsConfig{
			MaxConcurrent:   MaxConcurrentJobs,
			MaxQueued:       MaxQueuedJobs,
			ProviderTimeout: DefaultProviderTimeout,
		},
		Paths: PathsConfig{Work: WorkDir, Output: OutputDir},
		Schedule: ScheduleConfig{
			PerRun:       1,
			DurationHint: 30,
			Style:        "normal",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9093"},
			RequestsTopic: "video-job-requests",
			ResultsTopic:  "video-job-results",
			GroupID:       "shortsfactory-consumer-group",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")

	setString(&c.Script.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.Script.CohereKey, "COHERE_API_KEY")
	setString(&c.Script.Provider, "SCRIPT_PROVIDER")
	setString(&c.Assets.PexelsKey, "PEXELS_API_KEY")
	setString(&c.Narration.ElevenLabsKey, "ELEVENLABS_API_KEY")
	setString(&c.Narration.Provider, "TTS_PROVIDER")

	setString(&c.Upload.ClientID, "YOUTUBE_CLIENT_ID")
	setString(&c.Upload.ClientSecret, "YOUTUBE_CLIENT_SECRET")
	setString(&c.Upload.RefreshToken, "YOUTUBE_REFRESH_TOKEN")
	setString(&c.Upload.ServiceAccountFile, "YOUTUBE_SERVICE_ACCOUNT_FILE")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASS")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}

	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	setString(&c.Kafka.RequestsTopic, "KAFKA_TOPIC_JOB_REQUESTS")
	setString(&c.Kafka.ResultsTopic, "KAFKA_TOPIC_JOB_RESULTS")
	setString(&c.Kafka.GroupID, "KAFKA_CONSUMER_GROUP_ID")

	setString(&c.Storage.Bucket, "S3_BUCKET")
	setString(&c.Storage.Region, "S3_REGION")
	setString(&c.Storage.Profile, "S3_PROFILE")
	setString(&c.Storage.Prefix, "S3_PREFIX")
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		c.Storage.UsePathStyle = strings.EqualFold(v, "true") || v == "1"
	}

	setString(&c.Paths.Work, "WORK_DIR")
	setString(&c.Paths.Output, "OUTPUT_DIR")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Script.Provider {
	case "groq", "cohere":
	default:
		errs = append(errs, fmt.Errorf("script.provider %q must be groq or cohere", c.Script.Provider))
	}
	switch c.Narration.Provider {
	case "elevenlabs", "edge-tts":
	default:
		errs = append(errs, fmt.Errorf("narration.provider %q must be elevenlabs or edge-tts", c.Narration.Provider))
	}
	switch c.Timeline.Policy {
	case "uniform", "weighted":
	default:
		errs = append(errs, fmt.Errorf("timeline.policy %q must be uniform or weighted", c.Timeline.Policy))
	}
	if c.Assets.Candidates <= 0 {
		errs = append(errs, errors.New("assets.candidates must be positive"))
	}
	if c.Assets.Concurrent <= 0 {
		errs = append(errs, errors.New("assets.concurrent must be positive"))
	}
	if c.Jobs.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("jobs.max_concurrent must be positive"))
	}
	if c.Jobs.MaxQueued < 0 {
		errs = append(errs, errors.New("jobs.max_queued cannot be negative"))
	}
	if c.Jobs.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("jobs.provider_timeout must be positive"))
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, errors.New("upload.timeout must be positive"))
	}
	if c.Paths.Work == "" || c.Paths.Output == "" {
		errs = append(errs, errors.New("paths.work and paths.output are required"))
	}

	return errors.Join(errs...)
}
