package main

import (
	"fmt"
	"log/slog"

	"github.com/google/wire"

	"github.com/next-trace/scg-consumer-bus/adapters/inmemory"
	"github.com/next-trace/scg-consumer-bus/adapters/kafka"
	"github.com/next-trace/scg-consumer-bus/adapters/nats"
	"github.com/next-trace/scg-consumer-bus/adapters/rabbitmq"
	"github.com/next-trace/scg-consumer-bus/config"
	"github.com/next-trace/scg-consumer-bus/consumer"
	"github.com/next-trace/scg-consumer-bus/container"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
	"github.com/next-trace/scg-consumer-bus/examples/signup"
	"github.com/next-trace/scg-consumer-bus/logger"
	"github.com/next-trace/scg-consumer-bus/servicebus"
)

// App is the assembled consumerd process.
type App struct {
	Config  config.Config
	Bus     *servicebus.Bus
	Service *signup.Service
	Logger  *slog.Logger
}

var planSet = wire.NewSet(
	provideLogger,
	provideService,
	provideConsumerSets,
	provideContainer,
	provideRegistry,
	provideBinder,
)

var appSet = wire.NewSet(
	planSet,
	provideRuntime,
	wire.Bind(new(servicebus.EndpointBinder), new(*consumer.Binder)),
	provideBus,
	provideApp,
)

func provideLogger(cfg config.Config) (*slog.Logger, error) {
	l, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return l.With("service", cfg.Service), nil
}

func provideService(l *slog.Logger) *signup.Service { return signup.NewService(l) }

func provideConsumerSets(svc *signup.Service) []consumer.Set {
	return []consumer.Set{svc.Consumers()}
}

func provideContainer() *container.Container { return container.New() }

func provideRegistry(c *container.Container, sets []consumer.Set, l *slog.Logger) (*consumer.Registry, error) {
	return consumer.Load(c, l, sets...)
}

func provideBinder(cfg config.Config, reg *consumer.Registry, c *container.Container, l *slog.Logger) (*consumer.Binder, error) {
	naming, err := consumer.NamingFor(cfg.Endpoints.Naming)
	if err != nil {
		return nil, err
	}

	return consumer.NewBinder(reg, c,
		consumer.WithNaming(naming),
		consumer.WithPrefix(cfg.Endpoints.Prefix),
		consumer.WithLogger(l),
		consumer.WithConfigurator(consumer.DispatchConfigurator{
			Middleware: []consumer.Middleware{consumer.LogDeliveries(l)},
		}),
	), nil
}

func provideRuntime(cfg config.Config, l *slog.Logger) (cbus.Runtime, func(), error) {
	switch cfg.Transport {
	case config.TransportInMemory:
		return inmemory.New(), func() {}, nil
	case config.TransportRabbitMQ:
		rt, cleanup, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{
			URL:         cfg.RabbitMQ.URL,
			ConnTimeout: cfg.RabbitMQ.ConnTimeout,
			Prefetch:    cfg.RabbitMQ.Prefetch,
		}, l)
		if err != nil {
			return nil, nil, err
		}

		return rt, cleanup, nil
	case config.TransportNATS:
		rt, cleanup, err := nats.NewWithNATS(nats.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			ConnTimeout:   cfg.NATS.ConnTimeout,
			MaxReconnects: cfg.NATS.MaxReconnects,
		}, l)
		if err != nil {
			return nil, nil, err
		}

		return rt, cleanup, nil
	case config.TransportKafka:
		rt, cleanup, err := kafka.NewWithKgo(kafka.Config{
			Brokers:   cfg.Kafka.Brokers,
			ClientID:  cfg.Kafka.ClientID,
			FromStart: cfg.Kafka.FromStart,
		}, l)
		if err != nil {
			return nil, nil, err
		}

		return rt, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("transport %q: %w", cfg.Transport, berr.ErrNotConfigured)
	}
}

func provideBus(b servicebus.EndpointBinder, rt cbus.Runtime, l *slog.Logger) *servicebus.Bus {
	return servicebus.New(b, rt, l)
}

func provideApp(cfg config.Config, bus *servicebus.Bus, svc *signup.Service, l *slog.Logger) *App {
	svc.Attach(bus)

	return &App{Config: cfg, Bus: bus, Service: svc, Logger: l}
}
