package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/amsross/transitlambda/internal/config"
	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/logging"
	"github.com/amsross/transitlambda/pkg/lookup"
	"github.com/amsross/transitlambda/pkg/pipeline"
	"github.com/amsross/transitlambda/pkg/transit"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	apiClient, err := client.New(cfg.ClientConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}
	defer apiClient.Close()

	source, redisClient, err := buildLookupSource(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up lookup source")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	p := pipeline.New(apiClient, source, cfg.PipelineConfig())

	r := mux.NewRouter()
	r.HandleFunc("/departures", departuresHandler(p)).Methods("GET")
	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/ready", readyHandler(redisClient)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.Use(requestLogging(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BatchWindow + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("base_url", cfg.BaseURL).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

// buildLookupSource wires the optional pre-resolution lookup table. A YAML
// file wins over Redis when both are configured; neither configured means
// every term goes through fuzzy resolution.
func buildLookupSource(cfg *config.Config) (lookup.Source, *redis.Client, error) {
	if cfg.LookupFile != "" {
		source, err := lookup.LoadFile(cfg.LookupFile)
		if err != nil {
			return nil, nil, err
		}
		return source, nil, nil
	}

	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, err
		}
		return lookup.NewRedis(redisClient), redisClient, nil
	}

	return nil, nil, nil
}

type departuresResponse struct {
	Operator string            `json:"operator"`
	From     string            `json:"from"`
	To       string            `json:"to"`
	Legs     []transit.TripLeg `json:"legs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func departuresHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		operator := q.Get("operator")
		from := q.Get("from")
		to := q.Get("to")

		if operator == "" || from == "" || to == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "operator, from and to query parameters are required",
			})
			return
		}

		legs, err := p.FindNextDepartures(r.Context(), operator, from, to)
		if err != nil {
			if _, ok := client.IsAPIError(err); ok {
				writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		if legs == nil {
			legs = []transit.TripLeg{}
		}
		writeJSON(w, http.StatusOK, departuresResponse{
			Operator: operator,
			From:     from,
			To:       to,
			Legs:     legs,
		})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler reports readiness. Without a Redis lookup source there is no
// dependency to probe and the server is ready as soon as it listens.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("Redis unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogging(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}
