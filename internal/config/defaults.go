package config

const (
	defaultDataDir             = "~/.local/share/stagehand"
	defaultLogDir              = "~/.local/share/stagehand/logs"
	defaultAPIBind             = "127.0.0.1:4000"
	defaultReadHeaderTimeout   = 5
	defaultWriteTimeout        = 30
	defaultShutdownTimeout     = 5
	defaultDatabaseFile        = "stagehand.db"
	defaultBusyTimeoutMillis   = 5000
	defaultCacheDirName        = "poscache"
	defaultCacheGCInterval     = 300
	defaultCacheGCDiscardRatio = 0.5
	defaultHistoryCapacity     = 1024
	defaultSubscriberBuffer    = 64
	defaultPingInterval        = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			APIBind:           defaultAPIBind,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			WriteTimeout:      defaultWriteTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
			MetricsEnabled:    true,
		},
		Store: Store{
			File:              defaultDatabaseFile,
			BusyTimeoutMillis: defaultBusyTimeoutMillis,
		},
		Cache: Cache{
			SyncWrites:        true,
			GCIntervalSeconds: defaultCacheGCInterval,
			GCDiscardRatio:    defaultCacheGCDiscardRatio,
		},
		Notify: Notify{
			HistoryCapacity:     defaultHistoryCapacity,
			SubscriberBuffer:    defaultSubscriberBuffer,
			PingIntervalSeconds: defaultPingInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
