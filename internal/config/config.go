package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

var Version = "dev"

// Config is loaded once at startup and passed to the components that need
// it. Fields are never mutated after Load returns.
type Config struct {
	Port string

	// MaxConcurrency is the number of simultaneous downloads this process
	// allows. QueueTimeout is how long a request may wait for a free slot
	// before it is rejected.
	MaxConcurrency int
	QueueTimeout   time.Duration

	// DownloadTimeout bounds a single yt-dlp run. Independent from
	// QueueTimeout.
	DownloadTimeout time.Duration

	WorkDir   string
	MinDiskGB float64

	// StorageDir, when set, switches uploads to the mounted-volume mode:
	// artifacts are copied into the mount instead of going through the
	// GCS API.
	StorageDir    string
	DefaultBucket string

	WorkerToken string

	ProjectID string
	JobRegion string
	JobName   string

	YtdlpPath  string
	FFmpegPath string

	DiscordWebhookURL string
	DiscordPingUserID string
}

const (
	RateLimitWindow  = 60 * time.Second
	RateLimitMax     = 60
	MaxURLLength     = 2048
	DiagnosticsLimit = 2048
)

var ContainerMIMEs = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
}

var AudioMIMEs = map[string]string{
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"opus": "audio/opus",
	"wav":  "audio/wav",
	"flac": "audio/flac",
}

func Load() *Config {
	cfg := &Config{
		Port:            envOrDefault("PORT", "8080"),
		MaxConcurrency:  envInt("MAX_CONCURRENCY", 2),
		QueueTimeout:    envSeconds("REQ_QUEUE_TIMEOUT", 5),
		DownloadTimeout: envSeconds("DOWNLOAD_TIMEOUT", 3600),
		WorkDir:         envOrDefault("WORK_DIR", "/var/tmp/clipdock"),
		MinDiskGB:       envFloat("MIN_DISK_GB", 1),
		StorageDir:      os.Getenv("STORAGE_DIR"),
		DefaultBucket:   os.Getenv("BUCKET"),
		ProjectID:       os.Getenv("PROJECT_ID"),
		JobRegion:       envOrDefault("JOB_REGION", os.Getenv("REGION")),
		JobName:         os.Getenv("JOB_NAME"),
		YtdlpPath:       envOrDefault("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:      envOrDefault("FFMPEG_PATH", "/usr/bin/ffmpeg"),

		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordPingUserID: os.Getenv("DISCORD_PING_USER_ID"),
	}

	cfg.WorkerToken = os.Getenv("WORKER_TOKEN")
	if cfg.WorkerToken == "" {
		cfg.WorkerToken = os.Getenv("SECRET_TOKEN")
	}
	if cfg.WorkerToken == "" {
		log.Println("[WARN] WORKER_TOKEN not set, endpoints will be unprotected")
	}

	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}

	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[WARN] Invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
