package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/database"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gateway"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gomailer"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gosms"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gowhatsapp"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/kafka"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/repositories"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Reminders RemindersConfig `yaml:"reminders"`
	Email     EmailConfig     `yaml:"email"`
	SMS       SMSConfig       `yaml:"sms"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	WorkerAddr string `yaml:"workerAddr"`
}

type StorageConfig struct {
	Backend     string                `yaml:"backend"`
	Prefix      string                `yaml:"prefix"`
	Redis       database.RedisOptions `yaml:"redis"`
	PostgresDSN string                `yaml:"postgresDSN"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"groupID"`
	TLS     bool     `yaml:"tls"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"serviceName"`
}

type RemindersConfig struct {
	DefaultRegion  string        `yaml:"defaultRegion"`
	EmailFrom      string        `yaml:"emailFrom"`
	MaxRetries     int           `yaml:"maxRetries"`
	Backoff        time.Duration `yaml:"backoff"`
	RatePerSecond  float64       `yaml:"ratePerSecond"`
	RateBurst      int           `yaml:"rateBurst"`
	IdempotencyTTL time.Duration `yaml:"idempotencyTTL"`
}

type EmailConfig struct {
	Provider string                   `yaml:"provider"`
	SMTP     *gomailer.SMTPMailer     `yaml:"smtp,omitempty"`
	SendGrid *gomailer.SendGridMailer `yaml:"sendgrid,omitempty"`
}

type TwilioConfig struct {
	AccountSid string `yaml:"accountSid"`
	AuthToken  string `yaml:"authToken"`
	FromNumber string `yaml:"fromNumber"`
}

type SMSConfig struct {
	Provider string        `yaml:"provider"`
	Twilio   *TwilioConfig `yaml:"twilio,omitempty"`
}

// WhatsAppConfig selects between "link" (wa.me compose links, nothing is
// delivered) and "api" (Twilio WhatsApp).
type WhatsAppConfig struct {
	Mode   string                 `yaml:"mode"`
	Link   *gowhatsapp.LinkSender `yaml:"link,omitempty"`
	Twilio *TwilioConfig          `yaml:"twilio,omitempty"`
}

func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":3000", WorkerAddr: ":3001"},
		Storage: StorageConfig{Backend: "memory"},
		Kafka:   KafkaConfig{GroupID: "reminder_worker"},
		Tracing: TracingConfig{Endpoint: "jaeger:4317", ServiceName: "reminder_api"},
		Reminders: RemindersConfig{
			DefaultRegion:  "SN",
			MaxRetries:     3,
			Backoff:        time.Second,
			RatePerSecond:  1,
			RateBurst:      5,
			IdempotencyTTL: 24 * time.Hour,
		},
		WhatsApp: WhatsAppConfig{Mode: "link"},
	}
}

// LoadConfig overlays the YAML file on the defaults, then applies the
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := utils.GetEnv("KAFKA_BROKER"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if utils.GetEnv("STATE") == "prod" {
		cfg.Kafka.TLS = true
	}
	if v := utils.GetEnv("REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := utils.GetEnv("DATABASE_URL"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := utils.GetEnv("SENDGRID_API_KEY"); v != "" && cfg.Email.SendGrid != nil {
		cfg.Email.SendGrid.APIKey = v
	}
	if v := utils.GetEnv("TWILIO_AUTH_TOKEN"); v != "" {
		for _, t := range []*TwilioConfig{cfg.SMS.Twilio, cfg.WhatsApp.Twilio} {
			if t != nil {
				t.AuthToken = v
			}
		}
	}
	cfg.Reminders.DefaultRegion = utils.GetEnvDefault("REMINDER_DEFAULT_REGION", cfg.Reminders.DefaultRegion)
}

func BuildMailer(cfg *Config) (gomailer.Mailer, error) {
	switch cfg.Email.Provider {
	case "":
		return nil, nil
	case "smtp":
		if cfg.Email.SMTP == nil {
			return nil, fmt.Errorf("missing smtp config for email provider")
		}
		return cfg.Email.SMTP, nil
	case "sendgrid":
		if cfg.Email.SendGrid == nil {
			return nil, fmt.Errorf("missing sendgrid config for email provider")
		}
		return cfg.Email.SendGrid, nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Email.Provider)
	}
}

func BuildSender(cfg *Config) (gosms.Sender, error) {
	switch cfg.SMS.Provider {
	case "":
		return nil, nil
	case "twilio":
		if cfg.SMS.Twilio == nil {
			return nil, fmt.Errorf("missing twilio config for sms provider")
		}
		t := cfg.SMS.Twilio
		return gosms.NewTwilioSender(t.AccountSid, t.AuthToken, t.FromNumber), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider: %s", cfg.SMS.Provider)
	}
}

func BuildWhatsApp(cfg *Config) (gowhatsapp.Sender, error) {
	switch cfg.WhatsApp.Mode {
	case "", "link":
		if cfg.WhatsApp.Link != nil {
			return cfg.WhatsApp.Link, nil
		}
		return gowhatsapp.NewLinkSender(), nil
	case "api":
		if cfg.WhatsApp.Twilio == nil {
			return nil, fmt.Errorf("missing twilio config for whatsapp api mode")
		}
		t := cfg.WhatsApp.Twilio
		return gowhatsapp.NewTwilioSender(t.AccountSid, t.AuthToken, t.FromNumber), nil
	default:
		return nil, fmt.Errorf("unsupported whatsapp mode: %s", cfg.WhatsApp.Mode)
	}
}

func BuildGateway(cfg *Config, logger *zap.Logger) (*gateway.Gateway, error) {
	mailer, err := BuildMailer(cfg)
	if err != nil {
		return nil, err
	}
	sms, err := BuildSender(cfg)
	if err != nil {
		return nil, err
	}
	wa, err := BuildWhatsApp(cfg)
	if err != nil {
		return nil, err
	}
	return gateway.New(mailer, sms, wa, gateway.Options{
		EmailFrom:     cfg.Reminders.EmailFrom,
		DefaultRegion: cfg.Reminders.DefaultRegion,
		MaxRetries:    cfg.Reminders.MaxRetries,
		Backoff:       cfg.Reminders.Backoff,
	}, logger), nil
}

// ErrLocalStorage means the memory backend was chosen where several
// processes have to share reminder state.
var ErrLocalStorage = errors.New("memory storage is local to one process, use redis or postgres")

// RequireSharedStorage rejects the memory backend. The worker writes the
// ledger and policy counters the API reads, so both need the same store.
func RequireSharedStorage(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "", "memory":
		return ErrLocalStorage
	}
	return nil
}

// BuildKV opens the configured storage backend. The returned close function
// releases the underlying connection.
func BuildKV(ctx context.Context, cfg *Config) (repositories.KVStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Storage.Backend {
	case "", "memory":
		return repositories.NewMemoryKV(), noop, nil
	case "redis":
		rdb, err := database.InitRedis(ctx, cfg.Storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewRedisKV(rdb, cfg.Storage.Prefix), rdb.Close, nil
	case "postgres":
		db, err := database.InitDB(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigrateDB(db, &models.KVEntry{}); err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewPostgresKV(db), sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func BuildKafkaOptions(cfg *Config) (kafka.Options, error) {
	opts := kafka.Options{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
	}
	if cfg.Kafka.TLS {
		tlsCfg, err := utils.DecodeTLS()
		if err != nil {
			return opts, err
		}
		opts.TLS = tlsCfg
	}
	return opts, nil
}
