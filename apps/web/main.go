package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	webapp "github.com/trezcool/escuela/apps/web/echo"
	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/session"
	apisvc "github.com/trezcool/escuela/services/api"
	logsvc "github.com/trezcool/escuela/services/logger"
	"github.com/trezcool/escuela/storage/sessions/inmem"
	redisstore "github.com/trezcool/escuela/storage/sessions/redis"
)

const sweepEvery = time.Minute

type sweeper interface {
	session.Registry
	Run(ctx context.Context, every time.Duration)
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions, closeSessions, err := setUpSessions(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up sessions: %v", err), err)
	}
	defer closeSessions()
	go sessions.Run(ctx, sweepEvery)

	backend := apisvc.NewClient(conf.APIURL, conf.RequestTimeout)

	// =========================================================================
	// Start Web Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server, err := webapp.NewServer(webapp.ServerDeps{
		Conf:     conf,
		Logger:   logger,
		Backend:  backend,
		Sessions: sessions,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpSessions picks Redis when an address is configured, process memory otherwise.
func setUpSessions(ctx context.Context, conf *core.Config) (sweeper, func(), error) {
	if conf.Session.RedisAddr == "" {
		reg := inmem.NewRegistry(conf.Session.TTL)
		return reg, reg.Close, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: conf.Session.RedisAddr,
		DB:   conf.Session.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "redis ping")
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}
	return redisstore.NewRegistry(client, conf.Session.TTL), closeFn, nil
}
