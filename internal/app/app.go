// Package app owns application lifecycle: logger setup, store opening,
// service wiring and the background scheduler.
package app

import (
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/talkincode/stockpilot/config"
	"github.com/talkincode/stockpilot/internal/catalog"
	"github.com/talkincode/stockpilot/internal/store"
	"github.com/talkincode/stockpilot/internal/syncbridge"
)

type Application struct {
	appConfig *config.AppConfig
	blobs     *store.BlobStore
	records   *store.RecordStore
	catalog   *catalog.Service
	bridge    *syncbridge.Bridge
	bus       EventBus.Bus
	sched     *cron.Cron
}

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

func (a *Application) Bridge() *syncbridge.Bridge {
	return a.bridge
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.BlobStorePath()), 0o755); err != nil {
		return err
	}

	a.blobs = store.NewBlobStore(cfg.BlobStorePath())
	a.records = store.NewRecordStore(cfg.RecordStorePath())
	if err := a.blobs.Open(); err != nil {
		return err
	}
	if err := a.records.Open(); err != nil {
		return err
	}
	zap.S().Infof("stores opened under %s", cfg.System.Workdir)

	a.bus = EventBus.New()
	a.catalog, err = catalog.NewService(a.records, a.blobs, a.bus)
	if err != nil {
		return err
	}

	var pusher syncbridge.Pusher
	if cfg.Sync.Endpoint != "" {
		pusher = syncbridge.NewHTTPPusher(cfg.Sync.Endpoint, cfg.Sync.Token)
	}
	a.bridge = syncbridge.NewBridge(a.records, pusher, a.bus)
	if err := a.bridge.Start(); err != nil {
		return err
	}

	a.initJob()
	return nil
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// Release releases application resources in reverse wiring order.
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.bridge != nil {
		a.bridge.Stop()
	}
	if a.catalog != nil {
		a.catalog.Close()
	}
	if a.records != nil {
		_ = a.records.Close()
	}
	if a.blobs != nil {
		_ = a.blobs.Close()
	}
	_ = zap.L().Sync()
}
