package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"depotflow/config"
	"depotflow/engine"
	"depotflow/messaging"
	"depotflow/store"
	"depotflow/vehiclestate"
	"depotflow/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "depotflow.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("depotflow", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("depotflow: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("depotflow: redis not available (%v), running without cache", err)
	} else {
		log.Printf("depotflow: redis connected (%s)", cfg.Redis.Address)
	}
	cancel()
	defer redisClient.Close()

	// Vehicle state manager
	redisStore := vehiclestate.NewRedisStore(redisClient)
	vehicleStateMgr := vehiclestate.NewManager(db, redisStore)
	if err := vehicleStateMgr.SyncRedisFromSQL(); err != nil {
		log.Printf("depotflow: redis sync from SQL: %v", err)
	}

	// Kafka event stream
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("depotflow: kafka connect failed (%v)", err)
	} else {
		log.Printf("depotflow: kafka connected")
	}
	defer msgClient.Close()

	// MQTT notifier
	notifier := messaging.NewMQTTNotifier(&cfg.Messaging.MQTT)
	if err := notifier.Connect(); err != nil {
		log.Printf("depotflow: mqtt connect failed (%v)", err)
	} else {
		log.Printf("depotflow: mqtt connected (%s)", cfg.Messaging.MQTT.BrokerURL)
	}
	defer notifier.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:    cfg,
		ConfigPath:   *configPath,
		DB:           db,
		VehicleState: vehicleStateMgr,
		MsgClient:    msgClient,
		Notifier:     notifier,
	})
	eng.Start()
	defer eng.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("depotflow: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("depotflow: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("depotflow: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("depotflow: stopped")
}
