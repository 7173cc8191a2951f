package config

import "time"

const (
	DefaultAddr      = ":8080"
	DefaultDataDir   = "./data"
	DefaultStaticDir = "./static"
	DefaultLogLevel  = "info"

	DefaultFetchTimeout      = 30 * time.Second
	DefaultSyncInterval      = 15 * time.Minute
	DefaultSyncMinInterval   = 30 * time.Second
	DefaultRecurrenceHorizon = 365 * 24 * time.Hour

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultKafkaSyncTopic = "calendar.sync-events"
)
