//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/next-trace/scg-consumer-bus/config"
	"github.com/next-trace/scg-consumer-bus/consumer"
)

func initApp(cfg config.Config) (*App, func(), error) {
	panic(wire.Build(appSet))
}

func initBinder(cfg config.Config) (*consumer.Binder, error) {
	panic(wire.Build(planSet))
}
