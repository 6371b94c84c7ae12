// Package autoload initializes the global logger from the LOG_* environment
// when imported for side effects.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/pattarawit/amort-mortgage-advisor/pkg/logger"
)

func init() {
	var cfg logx.Config
	if err := envconfig.Process("LOG", &cfg); err != nil {
		cfg = *logx.DefaultConfig
	}
	logx.Init(cfg)
}
