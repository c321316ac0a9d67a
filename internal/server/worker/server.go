package worker

import (
	"strings"

	"github.com/hibiken/asynq"
)

// RedisOpt builds the asynq connection settings shared by client and server.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}

// NewServer returns an asynq server and the mux routing probe tasks to w.
func NewServer(opt asynq.RedisConnOpt, logLevel string, w *ProbeWorker) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{QueueProbe: 1},
		LogLevel:    asynqLevel(logLevel),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAudioProbe, w.ProcessTask)
	return srv, mux
}

func asynqLevel(level string) asynq.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return asynq.DebugLevel
	case "warn", "warning":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	default:
		return asynq.InfoLevel
	}
}
