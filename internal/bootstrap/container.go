package bootstrap

import (
	"log"

	"ai-chatbot-client/internal/config"
	"ai-chatbot-client/internal/controller"
	"ai-chatbot-client/internal/pkg/logger"
	"ai-chatbot-client/internal/service"
	"ai-chatbot-client/pkg/events"

	pktNats "ai-chatbot-client/pkg/nats"
)

type Container struct {
	// Controllers
	RelayController controller.IRelayController

	Logger logger.ILogger

	natsPub *pktNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Relay audit events. NATS is optional.
	var publisher events.Publisher = events.Discard{}
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
			publisher = pub
		}
	}

	// 3. Services
	relayService := service.NewRelayService(
		cfg.Relay.UpstreamURL,
		cfg.Relay.RequestTimeout,
		publisher,
		sysLogger,
	)

	// 4. Controllers
	return &Container{
		RelayController: controller.NewRelayController(relayService),
		Logger:          sysLogger,
		natsPub:         natsPub,
	}
}

// NewContainerWith wires the controllers around an existing service and logger.
func NewContainerWith(relayService service.IRelayService, log logger.ILogger) *Container {
	return &Container{
		RelayController: controller.NewRelayController(relayService),
		Logger:          log,
	}
}

// Close releases connections opened by NewContainer.
func (c *Container) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	_ = c.Logger.Sync()
}
