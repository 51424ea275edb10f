// Command hyperion boots the game-server core: loads configuration,
// bootstraps the world cache directory, and wires the region/world
// store, proxy session, egress fan-out, and tick loop together.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperion-mc/hyperion/config"
	"github.com/hyperion-mc/hyperion/egress"
	"github.com/hyperion-mc/hyperion/metrics"
	"github.com/hyperion-mc/hyperion/mojang"
	"github.com/hyperion-mc/hyperion/proxy"
	"github.com/hyperion-mc/hyperion/region"
	"github.com/hyperion-mc/hyperion/tick"
	"github.com/hyperion-mc/hyperion/world"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	if undo, err := config.SetGOMAXPROCS(func(format string, args ...any) {
		log.Info().Msgf(format, args...)
	}); err != nil {
		log.Warn().Err(err).Msg("automaxprocs: falling back to default GOMAXPROCS")
	} else {
		defer undo()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("config.toml")
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	logHostCapacity(log)

	cacheDir := defaultCacheDir()
	if err := ensureCacheDir(ctx, cacheDir); err != nil {
		log.Fatal().Err(err).Str("cache_dir", cacheDir).Msg("bootstrap world cache")
	}

	reg := metrics.NewRegistry()

	regionMgr := region.NewManager(filepath.Join(cfg.WorldPath, "region"))
	store := world.NewStore(regionMgr, blockRegistry{}, world.Config{
		SectionCount:      24,
		WorldFloorSection: -4,
		AirValue:          0,
		BiomeValue:        0,
	})

	mojangClient := mojang.NewClient(cfg.MojangRateBurst, time.Minute)
	defer mojangClient.Close()

	session := proxy.NewSession(dialTCP(cfg.ProxyListenAddress), log.With().Str("component", "proxy").Logger())
	eg := egress.New(session)

	loop := tick.NewLoop(tick.Config{
		Workers:         cfg.TickWorkers,
		BroadcastRadius: cfg.BroadcastRadius,
	}, store, eg)
	registerHandlers(loop, store)

	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("proxy session exited")
		}
	}()

	go runProxyEvents(ctx, session, loop, cfg.CompressionThreshold, log.With().Str("component", "events").Logger())

	runTickLoop(ctx, loop, reg, log)
}

// blockRegistry is a minimal placeholder world.BlockRegistry: a full
// block catalog (hundreds of names/properties/runtime ids) is a
// collaborator concern outside this core's scope, per spec.md's
// explicit non-goal on faithful client emulation.
type blockRegistry struct{}

func (blockRegistry) RuntimeID(name string, _ map[string]any) uint32 {
	if name == "minecraft:air" || name == "" {
		return 0
	}
	return 1
}
func (blockRegistry) Name(id uint32) string {
	if id == 0 {
		return "minecraft:air"
	}
	return "minecraft:stone"
}

func registerHandlers(loop *tick.Loop, store *world.Store) {
	// Gameplay packet handlers (movement, block interaction, chat,
	// inventory) are collaborator concerns per spec.md §1; this core
	// wires only the dispatch mechanism (tick.Loop.RegisterHandler) and
	// the proxy-event glue (runProxyEvents) they plug into.
	_ = loop
	_ = store
}

func runTickLoop(ctx context.Context, loop *tick.Loop, reg *metrics.Registry, log zerolog.Logger) {
	const tickRate = 20 // ticks per second, vanilla-compatible
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	var tickNum int64
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, stopping tick loop")
			return
		case <-ticker.C:
			start := time.Now()
			_, err := loop.Tick(ctx, tickNum, func(err error) {
				reg.DecodeErrorsTotal.Inc()
				log.Warn().Err(err).Msg("tick error")
			})
			reg.TicksTotal.Inc()
			reg.TickDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				log.Error().Err(err).Msg("tick failed")
			}
			tickNum++
		}
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hyperion"
	}
	return filepath.Join(home, ".hyperion")
}

func dialTCP(addr string) proxy.Dialer {
	var d net.Dialer
	return func(ctx context.Context) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}
}
