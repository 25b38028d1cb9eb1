package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/naiba/uptime/cmd/agent/monitor"
	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/logger"
	"github.com/naiba/uptime/pkg/mygin"
	"github.com/naiba/uptime/pkg/utils"
)

type agentCliParam struct {
	ConfigFile string
	Version    bool
}

var agentCliParams agentCliParam

func main() {
	flag.StringVarP(&agentCliParams.ConfigFile, "config", "c", "", "配置文件路径")
	flag.BoolVarP(&agentCliParams.Version, "version", "v", false, "查看当前版本号")
	flag.Parse()

	if agentCliParams.Version {
		println(monitor.Version)
		return
	}

	level := zap.NewAtomicLevel()
	conf, err := model.ReadInConfig(agentCliParams.ConfigFile, func(c *model.Config) {
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

	if conf.Agent.Token == "" {
		// 未配置时生成一次性 token，重启后失效
		if conf.Agent.Token, err = utils.GenerateRandomString(32); err != nil {
			log.Fatal("generate token", zap.Error(err))
		}
		log.Warn("agent.token not configured, using a generated token", zap.String("token", conf.Agent.Token))
	}
	if !conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	collector := &monitor.Collector{Mode: conf.Agent.Mode, Log: log.Named("collector")}
	srv := &http.Server{
		Addr:              conf.Agent.Listen,
		Handler:           newRouter(collector, conf.Agent.Token),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("capture agent listening", zap.String("listen", conf.Agent.Listen), zap.String("version", monitor.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func newRouter(c *monitor.Collector, token string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	api := r.Group("/api/v1", mygin.Authorize(token))
	api.GET("/metrics", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Capture(ctx.Request.Context()))
	})
	return r
}
