package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/amsross/transitlambda/internal/config"
	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/logging"
	"github.com/amsross/transitlambda/pkg/lookup"
	"github.com/amsross/transitlambda/pkg/pipeline"
)

func main() {
	var (
		operator = flag.String("operator", "", "Operator name or Onestop ID")
		from     = flag.String("from", "", "Origin stop name")
		to       = flag.String("to", "", "Destination stop name")
		verbose  = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	level := logging.LogLevel(cfg.LogLevel)
	if *verbose {
		level = logging.LevelDebug
	}
	logger := logging.Setup(logging.Config{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	})

	if *operator == "" || *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "usage: local -operator <name> -from <stop> -to <stop>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	apiClient, err := client.New(cfg.ClientConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}
	defer apiClient.Close()

	var source lookup.Source
	if cfg.LookupFile != "" {
		source, err = lookup.LoadFile(cfg.LookupFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.LookupFile).Msg("Failed to load lookup file")
		}
	}

	p := pipeline.New(apiClient, source, cfg.PipelineConfig())

	legs, err := p.FindNextDepartures(context.Background(), *operator, *from, *to)
	if err != nil {
		logger.Fatal().Err(err).Msg("Departure lookup failed")
	}

	if len(legs) == 0 {
		fmt.Printf("No upcoming departures found for %q from %q to %q\n", *operator, *from, *to)
		return
	}

	fmt.Printf("Next departures from %q to %q:\n", *from, *to)
	for _, leg := range legs {
		fmt.Printf("  %s -> %s  %s\n", leg.OriginDepartureTime, leg.DestinationArrivalTime, leg.TripHeadsign)
	}
}
