package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.sr.ht/~jakintosh/storefront/internal/api"
	"git.sr.ht/~jakintosh/storefront/internal/database"
	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/internal/tokens"
	apitypes "git.sr.ht/~jakintosh/storefront/pkg/api"
)

// storefront-api serves the storefront API from a persistent SQLite file.
//
// Required: DB_PATH, PORT, SIGNING_KEY_PATH.
// Optional: ISSUER_DOMAIN, ACCESS_TTL, REFRESH_TTL, ROTATE_REFRESH, RESET_CODE_TTL,
// CATALOG_DIR (seeded into an empty catalog), ADMIN ("username:password").
func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	dbPath := readEnvVar("DB_PATH")
	port := fmt.Sprintf(":%s", readEnvVar("PORT"))
	signingKey := loadCredential(readEnvVar("SIGNING_KEY_PATH"))

	db, err := database.NewSQLiteStore(dbPath)
	if err != nil {
		fatal("database_open_failed", err)
	}
	defer db.Close()

	issuer, validator := tokens.InitServer(signingKey, readEnvDefault("ISSUER_DOMAIN", "storefront.local"))
	svc := service.New(
		db.Stores(),
		issuer,
		validator,
		service.Config{
			AccessTTL:     readEnvDuration("ACCESS_TTL", service.DefaultAccessTTL),
			RefreshTTL:    readEnvDuration("REFRESH_TTL", service.DefaultRefreshTTL),
			RotateRefresh: readEnvDefault("ROTATE_REFRESH", "") == "true",
			ResetCodeTTL:  readEnvDuration("RESET_CODE_TTL", service.DefaultResetTTL),
			Mailer:        service.LogMailer{Log: log},
		},
	)

	if err := seed(svc, log); err != nil {
		fatal("seed_failed", err)
	}

	registry := prometheus.NewRegistry()
	r := mux.NewRouter()
	api.New(svc, apitypes.DefaultPrefix,
		api.WithLogger(log),
		api.WithMetrics(registry),
	).Mount(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("http_listen_start", slog.String("addr", port))
	fatal("http_serve_failed", server.ListenAndServe())
}

func seed(svc *service.Service, log *slog.Logger) error {
	if dir, ok := os.LookupEnv("CATALOG_DIR"); ok {
		existing, err := svc.ListProducts("")
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			products, err := service.LoadCatalog(dir)
			if err != nil {
				return err
			}
			if err := svc.SeedProducts(products); err != nil {
				return err
			}
			log.Info("catalog_seeded", slog.Int("products", len(products)))
		}
	}

	if admin, ok := os.LookupEnv("ADMIN"); ok {
		username, password, found := strings.Cut(admin, ":")
		if !found {
			return fmt.Errorf("ADMIN must be in format 'username:password'")
		}
		_, err := svc.CreateAdmin(username, username+"@example.com", password)
		var invalid *service.ValidationError
		switch {
		case err == nil:
			log.Info("admin_created", slog.String("username", username))
		case errors.As(err, &invalid) && len(invalid.Fields["username"]) > 0:
			log.Info("admin_exists", slog.String("username", username))
		default:
			return err
		}
	}
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.String("err", err.Error()))
	os.Exit(1)
}

func readEnvVar(name string) string {
	str, present := os.LookupEnv(name)
	if !present {
		fatal("missing_env", fmt.Errorf("missing required env var '%s'", name))
	}
	return str
}

func readEnvDefault(name string, fallback string) string {
	if str, present := os.LookupEnv(name); present {
		return str
	}
	return fallback
}

func readEnvDuration(name string, fallback time.Duration) time.Duration {
	str, present := os.LookupEnv(name)
	if !present {
		return fallback
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		fatal("bad_env", fmt.Errorf("env var '%s' could not be parsed as duration (\"%v\")", name, str))
	}
	return d
}

func loadCredential(path string) []byte {
	cred, err := os.ReadFile(path)
	if err != nil {
		fatal("credential_load_failed", fmt.Errorf("failed to load required credential '%s': %v", path, err))
	}
	return cred
}
