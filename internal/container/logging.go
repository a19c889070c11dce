package container

import (
	"os"

	log "github.com/sirupsen/logrus"

	"unitprice/pipeline/internal/config"
)

// SetupLogging applies log.level and log.format. Unknown levels fall back to info.
func SetupLogging(cfg config.LogConfig) {
	log.SetOutput(os.Stdout)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("⚠️ Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
