package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flokiorg/lspd/http"
	"github.com/flokiorg/lspd/logger"
	"github.com/flokiorg/lspd/service"
)

func main() {
	logger.Logger.Info().Msg("lspd starting")

	// Create a channel to receive OS signals.
	osSignalChannel := make(chan os.Signal, 1)
	// Notify the channel on os.Interrupt, syscall.SIGTERM. os.Kill cannot be caught.
	signal.Notify(osSignalChannel, os.Interrupt, syscall.SIGTERM, syscall.SIGPIPE)

	ctx, cancel := context.WithCancel(context.Background())

	var signal os.Signal
	go func() {
		for {
			// wait for exit signal
			signal = <-osSignalChannel
			logger.Logger.Info().Interface("signal", signal).Msg("Received OS signal")

			if signal == syscall.SIGPIPE {
				logger.Logger.Warn().Interface("signal", signal).Msg("Ignoring SIGPIPE signal")
				continue
			}

			cancel()
			break
		}
	}()

	svc, err := service.NewService(ctx)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create service")
		return
	}

	e := echo.New()

	httpSvc := http.NewHttpService(svc.GetOrderStore(), svc.GetLNClient(), svc.GetConfig(), svc.GetLimits())
	httpSvc.RegisterRoutes(e)
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", svc.GetConfig().Port)); err != nil && err != nethttp.ErrServerClosed {
			logger.Logger.Error().Err(err).Msg("echo server failed to start")
			cancel()
		}
	}()

	// handle graceful shutdown
	<-ctx.Done()
	logger.Logger.Info().Interface("signal", signal).Msg("Context Done")
	logger.Logger.Info().Msg("Shutting down echo server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	err = e.Shutdown(shutdownCtx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shutdown echo server")
	}
	logger.Logger.Info().Msg("Echo server exited")
	svc.Shutdown()
	logger.Logger.Info().Msg("Service exited")
}
