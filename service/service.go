package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/flokiorg/lspd/config"
	"github.com/flokiorg/lspd/db"
	"github.com/flokiorg/lspd/lnclient"
	"github.com/flokiorg/lspd/lnclient/lnd"
	"github.com/flokiorg/lspd/logger"
	"github.com/flokiorg/lspd/lsps/events"
	"github.com/flokiorg/lspd/lsps/lsps0"
	"github.com/flokiorg/lspd/lsps/lsps1"
	"github.com/flokiorg/lspd/lsps/persist"
	"github.com/flokiorg/lspd/lsps/server"
	"github.com/flokiorg/lspd/lsps/transport"
)

type service struct {
	cfg    *config.AppConfig
	limits *config.Limits

	db         *gorm.DB
	lnClient   lnclient.LNClient
	orderStore *persist.OrderStore
	eventQueue *events.EventQueue
	ctx        context.Context
}

// NewService loads configuration, connects to the node and starts the LSPS
// server, the order tracker and the event consumer.
func NewService(ctx context.Context) (*service, error) {
	// Load config from environment variables / .env file
	godotenv.Load(".env")
	appConfig, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger.Init(appConfig.LogLevel)

	if appConfig.Workdir == "" {
		appConfig.Workdir = filepath.Join(xdg.DataHome, "/lspd")
		logger.Logger.Info().Interface("workdir", appConfig.Workdir).Msg("No workdir specified, using default")
	}
	// make sure workdir exists
	os.MkdirAll(appConfig.Workdir, os.ModePerm)

	if appConfig.LogToFile {
		err = logger.AddFileLogger(appConfig.Workdir)
		if err != nil {
			return nil, err
		}
	}

	// If DATABASE_URI is a URI or a path, leave it unchanged.
	// If it only contains a filename, prepend the workdir.
	if !strings.HasPrefix(appConfig.DatabaseUri, "file:") {
		databasePath, _ := filepath.Split(appConfig.DatabaseUri)
		if databasePath == "" {
			appConfig.DatabaseUri = filepath.Join(appConfig.Workdir, appConfig.DatabaseUri)
		}
	}

	gormDB, err := db.NewDB(appConfig.DatabaseUri, appConfig.LogDBQueries)
	if err != nil {
		return nil, err
	}

	limits, err := appConfig.ParseLimits()
	if err != nil {
		return nil, err
	}
	feeSchedule, err := appConfig.ParseFeeSchedule()
	if err != nil {
		return nil, err
	}

	lnClient, err := lnd.NewLNDService(ctx, appConfig.LNDAddress, appConfig.LNDCertFile, appConfig.LNDMacaroonFile)
	if err != nil {
		return nil, err
	}

	orderStore := persist.NewOrderStore(gormDB)
	kvStore := persist.NewGormKVStore(gormDB)
	eventQueue := events.NewEventQueue(100)

	svc := &service{
		cfg:        appConfig,
		limits:     limits,
		db:         gormDB,
		lnClient:   lnClient,
		orderStore: orderStore,
		eventQueue: eventQueue,
		ctx:        ctx,
	}

	srv := server.NewServer(transport.NewLNDTransport(lnClient))
	lsps0.NewService(appConfig.EnabledProtocols()).Register(srv)

	if appConfig.LSPS1Enabled {
		orderSvc := lsps1.NewOrderService(&lsps1.OrderServiceConfig{
			Store:                       orderStore,
			LNClient:                    lnClient,
			Limits:                      limits,
			Website:                     appConfig.Website,
			MinimumChannelConfirmations: appConfig.MinimumChannelConfirmations,
			SupportsZeroChannelReserve:  appConfig.SupportsZeroChannelReserve,
			Fees:                        lsps1.NewFeeCalculator(feeSchedule),
			OrderLifetime:               time.Duration(appConfig.OrderLifetimeSeconds) * time.Second,
			EventQueue:                  eventQueue,
		})
		orderSvc.Register(srv)

		tracker := lsps1.NewTracker(&lsps1.TrackerConfig{
			Store:              orderStore,
			KV:                 kvStore,
			LNClient:           lnClient,
			ChannelOpenTimeout: time.Duration(appConfig.ChannelOpenTimeoutSeconds) * time.Second,
			EventQueue:         eventQueue,
			Locks:              orderSvc.Locks(),
		})
		if err := tracker.Start(ctx); err != nil {
			return nil, err
		}
	}

	if err := srv.Start(ctx); err != nil {
		return nil, err
	}

	go svc.consumeEvents(ctx)

	return svc, nil
}

func (svc *service) Shutdown() {
	svc.eventQueue.Close()
	if err := svc.lnClient.Shutdown(); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shut down node client")
	}
	if err := db.Stop(svc.db); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close database")
	}
}

func (svc *service) GetDB() *gorm.DB {
	return svc.db
}

func (svc *service) GetConfig() *config.AppConfig {
	return svc.cfg
}

func (svc *service) GetLimits() *config.Limits {
	return svc.limits
}

func (svc *service) GetLNClient() lnclient.LNClient {
	return svc.lnClient
}

func (svc *service) GetOrderStore() *persist.OrderStore {
	return svc.orderStore
}

func (svc *service) GetEventQueue() *events.EventQueue {
	return svc.eventQueue
}
