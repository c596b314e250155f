// Package config loads the dispatch settings: .env, then environment, then flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"service-dispatch/internal/logx"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config stores every setting of the dispatch binaries.
type Config struct {
	Port      int
	Store     Store
	Log       Log
	Matching  Matching
	Kafka     Kafka
	MQTT      MQTT
	Relay     Relay
	RateLimit RateLimit
	HTTP      HTTP
	Pprof     Pprof
}

// Store selects and configures the event store.
type Store struct {
	Backend string
	DB      DB
	Mongo   Mongo
	// ConnectAttempts and ConnectDelay drive the startup retry loop.
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// DB stores Postgres settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
	// DSN overrides the individual fields when set.
	DSN string
}

// Mongo stores MongoDB settings.
type Mongo struct {
	URI      string
	Database string
	MaxAwait time.Duration
}

// Log selects the logging backend.
type Log struct {
	Backend string // slog or zerolog
	Format  string // json, text or console
	Level   string
}

// Matching stores the engine timings.
type Matching struct {
	Window            time.Duration
	MaxWindow         time.Duration
	PollInterval      time.Duration
	BatchInterval     time.Duration
	OperationTimeout  time.Duration
	ReconcileInterval time.Duration
}

// CycleBudget is the longest a synchronous cycle with the largest allowed
// window can take: the window plus the store calls around it.
func (m Matching) CycleBudget() time.Duration {
	return m.MaxWindow + cycleStoreCalls*m.OperationTimeout
}

// cycleStoreCalls counts the bounded store calls of one cycle outside the
// window: publish, catch-up query, lookup, selection, projection, notification.
const cycleStoreCalls = 6

// Kafka stores broker settings for job intake and the selection relay.
type Kafka struct {
	Brokers         []string
	GroupID         string
	JobsTopic       string
	SelectionsTopic string
	ClientID        string
}

// MQTT stores the notification push settings.
type MQTT struct {
	Broker            string
	ClientID          string
	QoS               int
	NotificationTopic string
}

// Relay stores retry settings of the outbound sinks.
type Relay struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RateLimit stores HTTP rate limiting settings.
type RateLimit struct {
	Enabled bool
	Rate    float64
	Burst   int
	TTL     time.Duration
	MaxKeys int
}

// HTTP stores server timeouts.
type HTTP struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Pprof stores the optional profiling listener.
type Pprof struct {
	Addr string
	User string
	Pass string
}

// ConnString returns the Postgres connection string.
func (d DB) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Pass),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// Load reads configuration in order: .env (if present), environment, command-line flags.
func Load() (*Config, error) {
	return LoadFrom(pflag.CommandLine, os.Args[1:])
}

// LoadFrom is Load with an explicit flag set and arguments.
func LoadFrom(fs *pflag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	BindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the defaults overridden by environment variables.
func FromEnv() (*Config, error) {
	cfg := Default()
	e := envReader{}

	e.integer("PORT", &cfg.Port)

	e.str("STORE_BACKEND", &cfg.Store.Backend)
	e.integer("STORE_CONNECT_ATTEMPTS", &cfg.Store.ConnectAttempts)
	e.duration("STORE_CONNECT_DELAY", &cfg.Store.ConnectDelay)
	e.str("POSTGRES_HOST", &cfg.Store.DB.Host)
	e.str("POSTGRES_PORT", &cfg.Store.DB.Port)
	e.str("POSTGRES_USER", &cfg.Store.DB.User)
	e.str("POSTGRES_PASSWORD", &cfg.Store.DB.Pass)
	e.str("POSTGRES_DB", &cfg.Store.DB.Name)
	e.str("POSTGRES_DSN", &cfg.Store.DB.DSN)
	e.str("MONGO_URI", &cfg.Store.Mongo.URI)
	e.str("MONGO_DB", &cfg.Store.Mongo.Database)
	e.duration("MONGO_MAX_AWAIT", &cfg.Store.Mongo.MaxAwait)

	e.str("LOG_BACKEND", &cfg.Log.Backend)
	e.str("LOG_FORMAT", &cfg.Log.Format)
	e.str("LOG_LEVEL", &cfg.Log.Level)

	e.duration("MATCHING_WINDOW", &cfg.Matching.Window)
	e.duration("MATCHING_MAX_WINDOW", &cfg.Matching.MaxWindow)
	e.duration("MATCHING_POLL_INTERVAL", &cfg.Matching.PollInterval)
	e.duration("MATCHING_BATCH_INTERVAL", &cfg.Matching.BatchInterval)
	e.duration("MATCHING_OPERATION_TIMEOUT", &cfg.Matching.OperationTimeout)
	e.duration("MATCHING_RECONCILE_INTERVAL", &cfg.Matching.ReconcileInterval)

	e.list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	e.str("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	e.str("KAFKA_JOBS_TOPIC", &cfg.Kafka.JobsTopic)
	e.str("KAFKA_SELECTIONS_TOPIC", &cfg.Kafka.SelectionsTopic)
	e.str("KAFKA_CLIENT_ID", &cfg.Kafka.ClientID)

	e.str("MQTT_BROKER", &cfg.MQTT.Broker)
	e.str("MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	e.integer("MQTT_QOS", &cfg.MQTT.QoS)
	e.str("MQTT_NOTIFICATION_TOPIC", &cfg.MQTT.NotificationTopic)

	e.integer("RELAY_MAX_ATTEMPTS", &cfg.Relay.MaxAttempts)
	e.duration("RELAY_BASE_DELAY", &cfg.Relay.BaseDelay)
	e.duration("RELAY_MAX_DELAY", &cfg.Relay.MaxDelay)

	e.boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	e.float("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	e.integer("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	e.duration("RATE_LIMIT_TTL", &cfg.RateLimit.TTL)
	e.integer("RATE_LIMIT_MAX_KEYS", &cfg.RateLimit.MaxKeys)

	e.duration("HTTP_REQUEST_TIMEOUT", &cfg.HTTP.RequestTimeout)
	e.duration("HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout)

	e.str("PPROF_ADDR", &cfg.Pprof.Addr)
	e.str("PPROF_USER", &cfg.Pprof.User)
	e.str("PPROF_PASS", &cfg.Pprof.Pass)

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BindFlags registers the most common overrides on fs, writing into cfg.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.Store.Backend, "store", cfg.Store.Backend, "event store backend: memory, postgres or mongo")
	fs.StringVar(&cfg.Store.DB.DSN, "postgres-dsn", cfg.Store.DB.DSN, "postgres connection string")
	fs.StringVar(&cfg.Store.Mongo.URI, "mongo-uri", cfg.Store.Mongo.URI, "mongodb connection uri")
	fs.StringVar(&cfg.Store.Mongo.Database, "mongo-db", cfg.Store.Mongo.Database, "mongodb database")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn or error")
	fs.StringVar(&cfg.Log.Backend, "log-backend", cfg.Log.Backend, "log backend: slog or zerolog")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: json, text or console")
	fs.DurationVar(&cfg.Matching.PollInterval, "poll-interval", cfg.Matching.PollInterval, "subscription poll interval")
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	switch c.Store.Backend {
	case BackendMemory, BackendPostgres:
	case BackendMongo:
		if c.Store.Mongo.URI == "" || c.Store.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo backend needs MONGO_URI and MONGO_DB"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendPostgres && c.Store.DB.DSN == "" {
		if _, err := strconv.Atoi(c.Store.DB.Port); err != nil {
			errs = append(errs, fmt.Errorf("invalid postgres port %q", c.Store.DB.Port))
		}
	}
	if c.Store.ConnectAttempts <= 0 {
		errs = append(errs, errors.New("store connect attempts must be positive"))
	}
	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Backend {
	case "slog", "zerolog":
	default:
		errs = append(errs, fmt.Errorf("unknown log backend %q", c.Log.Backend))
	}
	for name, d := range map[string]time.Duration{
		"matching window":            c.Matching.Window,
		"matching poll interval":     c.Matching.PollInterval,
		"matching operation timeout": c.Matching.OperationTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Matching.MaxWindow < c.Matching.Window {
		errs = append(errs, fmt.Errorf("matching max window %s is below the window %s", c.Matching.MaxWindow, c.Matching.Window))
	}
	if c.Matching.BatchInterval < 0 || c.Matching.ReconcileInterval < 0 {
		errs = append(errs, errors.New("matching intervals must not be negative"))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS))
	}
	if c.Relay.MaxAttempts <= 0 {
		errs = append(errs, errors.New("relay max attempts must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate limit needs positive rate and burst"))
	}
	return errors.Join(errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.lookup(key); ok {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
	}
}
