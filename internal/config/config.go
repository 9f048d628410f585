package config

import (
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every setting of the api, processor, realtime and cli
// binaries. Nothing else in the module reads the environment directly.
type Config struct {
	AppEnv  string `env:"APP_ENV,default=dev"`
	AppName string `env:"APP_NAME,default=seva_booking"`

	HttpListenAddr     string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=5s"`
	HttpAllowedOrigins string        `env:"HTTP_ALLOWED_ORIGINS,default=*"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=seva:"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER,default=seva-booking"`
	JWTTTL    time.Duration `env:"JWT_TTL,default=24h"`

	PromNamespace     string `env:"PROM_NAMESPACE,default=seva"`
	MetricsListenAddr string `env:"METRICS_LISTEN_ADDR,default=:9100"`

	LogLevel string `env:"LOG_LEVEL,default=info"`

	ChangesStream          string        `env:"CHANGES_STREAM,default=changes"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=reconciler"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME,default=processor"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=500ms"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=50"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	ProcessorConsumers     int           `env:"PROCESSOR_CONSUMERS,default=2"`
	ProcessorWorkers       int           `env:"PROCESSOR_WORKERS,default=8"`
	ProcessorSweepInterval time.Duration `env:"PROCESSOR_SWEEP_INTERVAL,default=10m"`

	RealtimeListenAddr     string `env:"REALTIME_LISTEN_ADDR,default=:8081"`
	RealtimeConsumerGroup  string `env:"REALTIME_CONSUMER_GROUP,default=realtime"`
	RealtimeAllowedOrigins string `env:"REALTIME_ALLOWED_ORIGINS,default=*"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	if err = c.validate(); err != nil {
		return err
	}

	logger.SetLevel(c.LogLevel)
	logger.Debug("configs loaded", "app", c.AppName, "env", c.AppEnv, "log_level", logger.Level())
	config = c
	return nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" && c.AppEnv != "dev" {
		return errors.New("JWT_SECRET is required outside of dev")
	}
	if c.ProcessorConsumers <= 0 {
		c.ProcessorConsumers = 1
	}
	if c.ProcessorWorkers <= 0 {
		c.ProcessorWorkers = 1
	}
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set replaces the loaded configuration. Tests use it instead of Load.
func Set(c *Config) {
	config = c
}

func (c *Config) ReadPostgres() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}

func (c *Config) WritePostgres() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}

func (c *Config) IsDev() bool {
	return strings.EqualFold(c.AppEnv, "dev")
}

// SplitList splits a comma separated setting, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ArgValue returns the value of a --name=value command line flag.
func ArgValue(args []string, name string) string {
	prefix := "--" + name + "="
	for _, v := range args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}
