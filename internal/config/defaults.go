package config

const (
	defaultStateDir              = "~/.local/share/hoist"
	defaultLogDir                = "~/.local/share/hoist/logs"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultQueueBackend          = QueueBackendSQLite
	defaultRedisAddr             = "127.0.0.1:6379"
	defaultRedisKey              = "hoist:upload-queue"
	defaultConnectTimeout        = 30
	defaultReadTimeout           = 60
	defaultWriteTimeout          = 60
	defaultMaxRetries            = 2
	defaultProgressIntervalMS    = 250
	defaultUserAgent             = "Hoist/dev"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 10
	defaultLogMaxBackups         = 3
	defaultLogMaxAgeDays         = 28
	defaultLogCompress           = true
	defaultResumeOnStart         = false
	defaultNotifyStarted         = false
	defaultNotifyCompleted       = true
	defaultNotifyErrors          = true
	defaultNotifyCancelled       = false
	defaultNotifyQueueDrained    = true
	maxTransportRetries          = 10
	minProgressIntervalMS        = 10
	projectConfigFileName        = "hoist.toml"
	defaultConfigRelativeToHome  = "~/.config/hoist/config.toml"
	queueDatabaseFileName        = "queue.db"
	socketFileName               = "hoist.sock"
	lockFileName                 = "hoist.lock"
	pidFileName                  = "hoist.pid"
	daemonLogFileName            = "hoist.log"
)

// Queue backend identifiers accepted by queue.backend.
const (
	QueueBackendSQLite = "sqlite"
	QueueBackendRedis  = "redis"
	QueueBackendMemory = "memory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Queue: Queue{
			Backend:       defaultQueueBackend,
			ResumeOnStart: defaultResumeOnStart,
			RedisAddr:     defaultRedisAddr,
			RedisKey:      defaultRedisKey,
		},
		Transport: Transport{
			ConnectTimeout:     defaultConnectTimeout,
			ReadTimeout:        defaultReadTimeout,
			WriteTimeout:       defaultWriteTimeout,
			MaxRetries:         defaultMaxRetries,
			ProgressIntervalMS: defaultProgressIntervalMS,
			UserAgent:          defaultUserAgent,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Started:        defaultNotifyStarted,
			Completed:      defaultNotifyCompleted,
			Errors:         defaultNotifyErrors,
			Cancelled:      defaultNotifyCancelled,
			QueueDrained:   defaultNotifyQueueDrained,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
			Compress:   defaultLogCompress,
		},
	}
}
