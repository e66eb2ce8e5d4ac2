// Command configtool is a small CLI standing in for the external CRUD
// layer's trigger of C8: it publishes a single camera-name invalidation on
// the config_events exchange so every running processor drops that
// camera's cached pipeline and refetches it on the next frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"visionmesh/internal/bus"
	"visionmesh/internal/config"
	"visionmesh/internal/configbus"
	"visionmesh/internal/logging"
)

func main() {
	cameraName := flag.String("camera", "", "camera name whose pipeline changed")
	flag.Parse()

	if *cameraName == "" {
		fmt.Fprintln(os.Stderr, "usage: configtool -camera <name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New("info")
	b := bus.New(cfg.AMQPAddress(), log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connecting to frame bus")
	}
	defer b.Close()

	publisher := configbus.New(b)
	if err := publisher.PublishCameraUpdated(ctx, *cameraName); err != nil {
		log.Fatal().Err(err).Msg("publishing config update")
	}

	log.Info().Str("camera", *cameraName).Msg("published pipeline invalidation")
}
