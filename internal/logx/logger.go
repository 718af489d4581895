package logx

import (
	"os"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. Production logs JSON at info level,
// everything else gets a console writer at debug level.
func Init(env config.Environment, service string) {
	if env == config.Production {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger().Level(zerolog.InfoLevel)
		return
	}
	log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Str("service", service).Logger()
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
