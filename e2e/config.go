package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ENGINE_ADDR points the suite at an already running engine.
	// Empty means the suite boots its own engine on a free port.
	EngineAddr string `envconfig:"ENGINE_ADDR"`
	// E2E_DEBUG_FRAMES dumps every frame exchanged with the engine
	DebugFrames bool `envconfig:"E2E_DEBUG_FRAMES" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
