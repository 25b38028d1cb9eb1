package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/logger"
	"github.com/naiba/uptime/pkg/utils"
	"github.com/naiba/uptime/service/admin"
	"github.com/naiba/uptime/service/dao"
	"github.com/naiba/uptime/service/incident"
	"github.com/naiba/uptime/service/maintenance"
	"github.com/naiba/uptime/service/notification"
	"github.com/naiba/uptime/service/probe"
	"github.com/naiba/uptime/service/scheduler"
	"github.com/naiba/uptime/service/sentinel"
	"github.com/naiba/uptime/service/status"
)

type DashboardCliParam struct {
	ConfigFile      string
	MetricsInterval time.Duration
}

var dashboardCliParam DashboardCliParam

func main() {
	flag.StringVarP(&dashboardCliParam.ConfigFile, "config", "c", "", "配置文件路径")
	flag.DurationVar(&dashboardCliParam.MetricsInterval, "metrics-interval", time.Minute, "队列指标输出间隔，0 为关闭")
	flag.Parse()

	level := zap.NewAtomicLevel()
	conf, err := model.ReadInConfig(dashboardCliParam.ConfigFile, func(c *model.Config) {
		level.SetLevel(logger.ParseLevel(c.Log.Level))
	})
	if err != nil {
		panic(err)
	}
	level.SetLevel(logger.ParseLevel(conf.Log.Level))
	log, err := logger.New(level, conf.Log.File)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store, err := dao.Open(conf.Database.Driver, conf.Database.DSN, conf.Debug)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer store.Close()

	svc := newService(conf, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.scheduler.Start(ctx); err != nil {
		log.Fatal("start scheduler", zap.Error(err))
	}
	log.Info("uptime engine started", zap.Int("jobs", len(svc.admin.GetJobs())))

	if dashboardCliParam.MetricsInterval > 0 {
		go reportMetrics(ctx, svc.admin, dashboardCliParam.MetricsInterval, log.Named("queue"))
	}

	<-ctx.Done()
	log.Info("shutting down, waiting for running jobs")
	<-svc.scheduler.Stop().Done()
}

type service struct {
	scheduler *scheduler.Scheduler
	admin     *admin.Service
}

// newService 组装引擎各组件，dao.Store 同时满足各组件的存储接口
func newService(conf *model.Config, store *dao.Store, log *zap.Logger) *service {
	prober := probe.New(
		probe.WithTimeout(conf.Probe.Timeout),
		probe.WithPagespeedAPIKey(conf.Pagespeed.APIKey),
		probe.WithPingPrivileged(conf.Probe.PingPrivileged),
	)
	engine := status.NewEngine(store, log.Named("status"))
	gate := maintenance.NewGate(store, conf.Maintenance.RefreshTTL, log.Named("maintenance"))
	incidents := incident.NewManager(store, log.Named("incident"))
	notifier := notification.NewNotifier(store,
		notification.DefaultSenders(utils.HttpClient, notification.SMTPConfig{
			Host: conf.SMTP.Host,
			Port: conf.SMTP.Port,
			User: conf.SMTP.User,
			Pass: conf.SMTP.Pass,
		}),
		notification.Config{
			Workers:         conf.Notification.Workers,
			ChannelCacheTTL: conf.Notification.ChannelCacheTTL,
		}, log.Named("notification"))

	sn := sentinel.New(sentinel.Deps{
		Store:     store,
		Gate:      gate,
		Prober:    prober,
		Status:    engine,
		Incidents: incidents,
		Notifier:  notifier,
		Retention: conf.Retention.Checks,
	}, log.Named("sentinel"))

	sched := scheduler.New(store, sn.Run, sn.Cleanup, scheduler.Config{
		CleanupInterval: conf.Scheduler.CleanupInterval,
	}, log.Named("scheduler"))

	return &service{
		scheduler: sched,
		admin:     admin.New(store, sched, incidents, notifier, gate, log.Named("admin")),
	}
}

func reportMetrics(ctx context.Context, a *admin.Service, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := a.GetMetrics()
			log.Info("queue metrics",
				zap.Int("jobs", m.Jobs),
				zap.Int("active", m.ActiveJobs),
				zap.Int("failing", m.FailingJobs),
				zap.Uint64("runs", m.TotalRuns),
				zap.Uint64("failures", m.TotalFailures))
		}
	}
}
