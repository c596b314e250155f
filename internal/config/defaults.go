package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "dispatch",
	Pass: "dispatch",
	Name: "dispatch",
}

var defaultMatching = Matching{
	Window:            8 * time.Second,
	MaxWindow:         60 * time.Second,
	PollInterval:      200 * time.Millisecond,
	BatchInterval:     1500 * time.Millisecond,
	OperationTimeout:  3 * time.Second,
	ReconcileInterval: 30 * time.Second,
}

var defaultRelay = Relay{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

var defaultRateLimit = RateLimit{
	Enabled: false,
	Rate:    20,
	Burst:   40,
	TTL:     10 * time.Minute,
	MaxKeys: 10000,
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		Port: defaultPort,
		Store: Store{
			Backend:         BackendPostgres,
			DB:              defaultDB,
			Mongo:           Mongo{Database: "dispatch", MaxAwait: time.Second},
			ConnectAttempts: 10,
			ConnectDelay:    time.Second,
		},
		Log:      Log{Backend: "slog", Format: "json", Level: "info"},
		Matching: defaultMatching,
		Kafka: Kafka{
			GroupID:         "dispatch-worker",
			JobsTopic:       "dispatch.jobs",
			SelectionsTopic: "dispatch.selections",
			ClientID:        "dispatch",
		},
		MQTT: MQTT{
			ClientID:          "dispatch-relay",
			QoS:               1,
			NotificationTopic: "couriers/{courier_id}/notifications",
		},
		Relay:     defaultRelay,
		RateLimit: defaultRateLimit,
		HTTP: HTTP{
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
	}
}

// DefaultMatching returns the default engine timings.
func DefaultMatching() Matching {
	return defaultMatching
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}
