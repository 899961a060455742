package main

import (
	"github.com/inboxgraph/backend/internal/server"
	"github.com/inboxgraph/backend/internal/util"
	"github.com/inboxgraph/backend/pkg/logger"
	"github.com/inboxgraph/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
