// Package autoload initializes the global logger from LOG_* variables on import.
package autoload

import (
	configx "github.com/tanpawarit/chative-concierge/pkg/config"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		logx.Warn().Err(err).Msg("logger config not loaded, using defaults")
		return
	}
	logx.Init(*conf)
}
