package main

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
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

//go:embed catalog/*.json
var catalogFS embed.FS

// Config holds all command-line configuration
type Config struct {
	ListenAddr   string
	IssuerDomain string
	Users        []UserCredentials
	Admins       []UserCredentials
	CatalogDir   string
	NoCatalog    bool
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Rotate       bool
	DataDir      string
	Keep         bool
	Quiet        bool
}

type UserCredentials struct {
	Username string
	Password string
}

func (u UserCredentials) Email() string { return u.Username + "@example.com" }

// OutputContract is the JSON line written to stdout once the server is
// listening.
type OutputContract struct {
	BaseURL      string        `json:"base_url"`
	APIURL       string        `json:"api_url"`
	MetricsURL   string        `json:"metrics_url"`
	IssuerDomain string        `json:"issuer_domain"`
	AccessTTL    string        `json:"access_ttl"`
	RefreshTTL   string        `json:"refresh_ttl"`
	Rotate       bool          `json:"rotate_refresh"`
	Paths        OutputPaths   `json:"paths"`
	Users        []OutputUser  `json:"users"`
	Products     []OutputEntry `json:"products"`
}

type OutputPaths struct {
	DataDir    string `json:"data_dir"`
	DBPath     string `json:"db_path"`
	CatalogDir string `json:"catalog_dir"`
}

type OutputUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type OutputEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
}

// UserFlag is a repeatable "username:password" flag.
type UserFlag []UserCredentials

func (u *UserFlag) String() string {
	return fmt.Sprintf("%v", *u)
}

func (u *UserFlag) Set(value string) error {
	username, password, ok := strings.Cut(value, ":")
	if !ok || username == "" {
		return fmt.Errorf("user must be in format 'username:password'")
	}
	*u = append(*u, UserCredentials{Username: username, Password: password})
	return nil
}

func main() {
	cfg := parseFlags()

	var out io.Writer = os.Stderr
	if cfg.Quiet {
		out = io.Discard
	}
	log := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("testserver_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger) error {
	workspace, cleanup, err := createWorkspace(cfg)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	defer cleanup()

	signingKey, err := generateKey()
	if err != nil {
		return err
	}

	db, err := database.NewSQLiteStore(workspace.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	issuer, validator := tokens.InitServer(signingKey, cfg.IssuerDomain)
	svc := service.New(
		db.Stores(),
		issuer,
		validator,
		service.Config{
			AccessTTL:     cfg.AccessTTL,
			RefreshTTL:    cfg.RefreshTTL,
			RotateRefresh: cfg.Rotate,
			Mailer:        service.LogMailer{Log: log},
		},
	)

	users, err := seedUsers(svc, cfg)
	if err != nil {
		return err
	}
	products, err := seedCatalog(svc, cfg, workspace)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	r := mux.NewRouter()
	api.New(svc, apitypes.DefaultPrefix,
		api.WithLogger(log),
		api.WithMetrics(registry),
	).Mount(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	baseURL := fmt.Sprintf("http://%s:%d", addr.IP, addr.Port)

	contract := OutputContract{
		BaseURL:      baseURL,
		APIURL:       baseURL + apitypes.DefaultPrefix,
		MetricsURL:   baseURL + "/metrics",
		IssuerDomain: cfg.IssuerDomain,
		AccessTTL:    cfg.AccessTTL.String(),
		RefreshTTL:   cfg.RefreshTTL.String(),
		Rotate:       cfg.Rotate,
		Paths: OutputPaths{
			DataDir:    workspace.DataDir,
			DBPath:     workspace.DBPath,
			CatalogDir: workspace.CatalogDir,
		},
		Users:    users,
		Products: make([]OutputEntry, len(products)),
	}
	for i, p := range products {
		contract.Products[i] = OutputEntry{ID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price.String()}
	}
	if err := json.NewEncoder(os.Stdout).Encode(contract); err != nil {
		return fmt.Errorf("encode JSON contract: %w", err)
	}

	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()
	log.Info("http_listen_start", slog.String("addr", listener.Addr().String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown_requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func parseFlags() Config {
	var cfg Config
	var users, admins UserFlag

	flag.StringVar(&cfg.ListenAddr, "listen", "127.0.0.1:0", "Listen address (default uses ephemeral port)")
	flag.StringVar(&cfg.IssuerDomain, "issuer-domain", "storefront.test", "Issuer domain for JWT tokens")
	flag.Var(&users, "user", "Customer in format 'username:password' (repeatable)")
	flag.Var(&admins, "admin", "Administrator in format 'username:password' (repeatable)")
	flag.StringVar(&cfg.CatalogDir, "catalog", "", "Directory of product JSON files (uses the built-in catalog if not set)")
	flag.BoolVar(&cfg.NoCatalog, "no-catalog", false, "Start with an empty catalog")
	flag.DurationVar(&cfg.AccessTTL, "access-ttl", service.DefaultAccessTTL, "Access token lifetime")
	flag.DurationVar(&cfg.RefreshTTL, "refresh-ttl", service.DefaultRefreshTTL, "Refresh token lifetime")
	flag.BoolVar(&cfg.Rotate, "rotate", false, "Rotate refresh tokens on every refresh")
	flag.StringVar(&cfg.DataDir, "data-dir", "", "Data directory (uses temp dir if not set)")
	flag.BoolVar(&cfg.Keep, "keep", false, "Keep data directory on exit")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "Suppress log output")
	flag.Parse()

	cfg.Users = users
	cfg.Admins = admins
	if len(users) == 0 && len(admins) == 0 {
		cfg.Users = []UserCredentials{{Username: "test", Password: "password123"}}
	}
	return cfg
}

type Workspace struct {
	DataDir    string
	DBPath     string
	CatalogDir string
}

func createWorkspace(cfg Config) (*Workspace, func(), error) {
	var dataDir string
	var shouldCleanup bool

	if cfg.DataDir != "" {
		dataDir = cfg.DataDir
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, nil, err
		}
	} else {
		tempDir, err := os.MkdirTemp("", "storefront-testserver-*")
		if err != nil {
			return nil, nil, err
		}
		dataDir = tempDir
		shouldCleanup = !cfg.Keep
	}

	workspace := &Workspace{
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, "db.sqlite"),
		CatalogDir: cfg.CatalogDir,
	}
	if workspace.CatalogDir == "" {
		workspace.CatalogDir = filepath.Join(dataDir, "catalog")
		if err := os.MkdirAll(workspace.CatalogDir, 0755); err != nil {
			return nil, nil, err
		}
	}

	cleanup := func() {
		if shouldCleanup {
			os.RemoveAll(dataDir)
		}
	}
	return workspace, cleanup, nil
}

func generateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

// writeCatalog copies the built-in catalog into dir.
func writeCatalog(dir string) error {
	files, err := catalogFS.ReadDir("catalog")
	if err != nil {
		return fmt.Errorf("read embedded catalog: %w", err)
	}
	for _, file := range files {
		content, err := catalogFS.ReadFile("catalog/" + file.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", file.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, file.Name()), content, 0644); err != nil {
			return fmt.Errorf("write %s: %w", file.Name(), err)
		}
	}
	return nil
}

func seedCatalog(svc *service.Service, cfg Config, workspace *Workspace) ([]apitypes.Product, error) {
	if cfg.NoCatalog {
		return nil, nil
	}
	if cfg.CatalogDir == "" {
		if err := writeCatalog(workspace.CatalogDir); err != nil {
			return nil, err
		}
	}

	products, err := service.LoadCatalog(workspace.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := svc.SeedProducts(products); err != nil {
		return nil, err
	}
	return svc.ListProducts("")
}

func seedUsers(svc *service.Service, cfg Config) ([]OutputUser, error) {
	var out []OutputUser
	for _, admin := range cfg.Admins {
		user, err := svc.CreateAdmin(admin.Username, admin.Email(), admin.Password)
		if err != nil {
			return nil, fmt.Errorf("create admin %s: %w", admin.Username, err)
		}
		out = append(out, outputUser(user, admin.Password))
	}
	for _, customer := range cfg.Users {
		res, err := svc.Register(customer.Username, customer.Email(), customer.Password)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", customer.Username, err)
		}
		out = append(out, outputUser(&res.User, customer.Password))
	}
	return out, nil
}

func outputUser(user *apitypes.User, password string) OutputUser {
	return OutputUser{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Password: password,
		Role:     string(user.Role),
	}
}
