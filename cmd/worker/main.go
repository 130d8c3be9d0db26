package main

import (
	"os"

	"github.com/DRSN-tech/market-crawler/internal/app"
	config "github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
)

func main() {
	os.Exit(run())
}

// run возвращает код выхода. os.Exit вызывается только в main,
// чтобы отложенный сброс буферов логгера успел выполниться.
func run() int {
	bootLog := logger.NewZapLogger(logger.Config{Level: "info"})
	defer logger.Sync(bootLog)

	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Errorf(err, "failed to load config")
		return 1
	}

	log := logger.NewZapLogger(logger.Config{
		IsDevelopment: cfg.App.IsDevelopment(),
		Level:         cfg.App.LogLevel,
	})
	defer logger.Sync(log)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		return 1
	}

	if err := application.Run(); err != nil {
		return 1
	}
	return 0
}
