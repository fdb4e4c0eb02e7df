package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		zap.S().Errorf("scheduler timezone %q invalid, using local", a.appConfig.System.Location)
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if a.appConfig.Sync.Endpoint != "" {
		interval := a.appConfig.Sync.Interval
		if interval == "" {
			interval = "@every 10m"
		}
		if _, err := a.sched.AddFunc(interval, a.SchedSyncPushTask); err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	if _, err := a.sched.AddFunc("@every 5m", a.SchedStoreProbeTask); err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSyncPushTask pushes a full snapshot to the remote peer on the
// configured interval, independent of the change-triggered pushes.
func (a *Application) SchedSyncPushTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	if err := a.bridge.PushNow(); err != nil {
		zap.L().Error("scheduled sync push failed", zap.Error(err))
	}
}

// SchedStoreProbeTask exercises both stores so a broken handle is
// reopened before an operator request hits it.
func (a *Application) SchedStoreProbeTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	if _, err := a.records.LoadProducts(); err != nil {
		zap.L().Warn("record store probe failed", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := a.blobs.List(ctx); err != nil {
		zap.L().Warn("blob store probe failed", zap.Error(err))
	}
}
