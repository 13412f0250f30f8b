package cache

import "github.com/rs/zerolog"

// ZerologAdapter forwards cache errors to a zerolog logger at warn level.
type ZerologAdapter struct {
	Logger zerolog.Logger
}

func (a ZerologAdapter) Error(msg string, err error) {
	a.Logger.Warn().Err(err).Msg(msg)
}
