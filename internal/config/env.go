package config

const (
	EnvAddr      = "ADDR"
	EnvDataDir   = "DATA_DIR"
	EnvStaticDir = "STATIC_DIR"
	EnvLogLevel  = "LOG_LEVEL"

	EnvFetchTimeout      = "FETCH_TIMEOUT"
	EnvSyncInterval      = "SYNC_INTERVAL"
	EnvSyncMinInterval   = "SYNC_MIN_INTERVAL"
	EnvRecurrenceHorizon = "RECURRENCE_HORIZON"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvKafkaBrokers   = "KAFKA_BROKERS"
	EnvKafkaSyncTopic = "KAFKA_SYNC_TOPIC"
)
