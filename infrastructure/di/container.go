package di

import (
	"github.com/aokaito/annotune-sub000/application/services"
	"github.com/aokaito/annotune-sub000/infrastructure/config"
	"github.com/aokaito/annotune-sub000/interfaces/http/rest"
	"github.com/aokaito/annotune-sub000/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Service   *services.LyricService
	Router    *rest.Router
	Tracer    *observability.Tracer
	Collector *observability.Collector
}

// Shutdown flushes buffered log entries
func (c *Container) Shutdown() {
	_ = c.Logger.Sync()
}
