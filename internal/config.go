package internal

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize      int    `env:"BUFFER_SIZE,required=true"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,required=true"`
	LimitSessions   *int   `env:"LIMIT_SESSIONS"`
	BatchSize       int    `env:"BATCH_SIZE,required=true"`

	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,required=true"`
	NotifyInterval  time.Duration `env:"NOTIFY_INTERVAL,required=true"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,required=true"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,required=true"`

	LatencyThreshold     time.Duration `env:"LATENCY_THRESHOLD,required=true"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,required=true"`
	TimelineCapacity     int           `env:"TIMELINE_CAPACITY,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	Host      string `env:"HOST,required=true"`
	TcpPort   int    `env:"TCP_PORT,required=true"`
	WsPort    int    `env:"WS_PORT,required=true"`
	DebugPort int    `env:"DEBUG_PORT,required=true"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
