package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/config"
	"github.com/talkincode/stockpilot/internal/app"
	"github.com/talkincode/stockpilot/internal/webapi"
)

var (
	configFile = flag.String("c", "/etc/stockpilot.yml", "config file path")
	showVer    = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer application.Release()

	server := webapi.NewServer(cfg, application.Catalog(), application.Bridge())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zap.L().Info("shutting down", zap.String("signal", sig.String()))
		_ = server.Shutdown()
	case err := <-errCh:
		if err != nil {
			zap.L().Error("server exited", zap.Error(err))
		}
	}
}
