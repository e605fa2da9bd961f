package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/battleship/config"
	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/logger"
	"github.com/wfunc/battleship/monitor"
	"github.com/wfunc/battleship/persistence"
	"github.com/wfunc/battleship/room"
	"github.com/wfunc/battleship/server"
	"github.com/wfunc/battleship/services"
	"github.com/wfunc/battleship/telemetry"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("info", false); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		logger.Log.Fatalf("Invalid log settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "battleship", cfg.Tracing.Endpoint)
	if err != nil {
		logger.Log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTracing(flushCtx)
	}()

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open %s database: %v", cfg.Database.Driver, err)
	}
	defer db.Close()
	logger.Log.Infof("Match archive ready (driver %s).", cfg.Database.Driver)

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Only the room manager calls the factory, one room at a time.
	rng := rand.New(rand.NewSource(seed))
	settings := cfg.GameSettings()
	matches := services.NewMatchService(db)
	mon := monitor.NewMonitor("battleship")

	rooms := room.NewRoomManager(func() (*room.Room, error) {
		sess, err := game.NewSession(settings, rng)
		if err != nil {
			return nil, err
		}
		return room.NewRoom(uuid.New().String(), sess, room.Options{
			Settings: settings,
			Recorder: matches,
			Observer: mon,
		}), nil
	})
	// Fail at startup rather than on the first connection if the fleet
	// cannot be placed.
	if _, err := rooms.Current(); err != nil {
		logger.Log.Fatalf("Failed to create match: %v", err)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server, rooms, matches, mon)

	logger.Log.Infof("Starting battleship server on %s (udp %s)", cfg.Server.TCPAddress, cfg.Server.UDPAddress)
	if err := gameServer.Start(ctx); err != nil {
		logger.Log.Fatalf("Server stopped: %v", err)
	}
	logger.Log.Info("Server stopped.")
}
