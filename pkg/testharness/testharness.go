// Package testharness runs storefront-testserver as a child process for
// integration tests in other modules.
package testharness

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"
)

const (
	BinaryName = "storefront-testserver"
	BinaryEnv  = "STOREFRONT_TESTSERVER_BIN"
)

// Config holds configuration for starting the test harness.
type Config struct {
	Users        []User
	Admins       []User
	IssuerDomain string
	CatalogDir   string
	NoCatalog    bool
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Rotate       bool
	ListenAddr   string
	DataDir      string
	Keep         bool
	BinaryPath   string
	Quiet        bool
}

// User holds test account credentials. ID, Email and Role are filled in
// from the running server.
type User struct {
	ID       int64
	Username string
	Email    string
	Password string
	Role     string
}

type Product struct {
	ID       int64
	Name     string
	Category string
	Price    string
}

// Harness represents a running storefront-testserver instance.
type Harness struct {
	BaseURL      string
	APIURL       string
	MetricsURL   string
	IssuerDomain string
	DBPath       string
	AccessTTL    time.Duration
	Users        []User
	Products     []Product

	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// outputContract matches the JSON line from storefront-testserver
type outputContract struct {
	BaseURL      string        `json:"base_url"`
	APIURL       string        `json:"api_url"`
	MetricsURL   string        `json:"metrics_url"`
	IssuerDomain string        `json:"issuer_domain"`
	AccessTTL    string        `json:"access_ttl"`
	Paths        outputPaths   `json:"paths"`
	Users        []outputUser  `json:"users"`
	Products     []outputEntry `json:"products"`
}

type outputPaths struct {
	DataDir string `json:"data_dir"`
	DBPath  string `json:"db_path"`
}

type outputUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type outputEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
}

// Start spawns a storefront-testserver and returns a handle to it. The
// test is skipped when no binary can be found. Cleanup is registered with
// t.Cleanup().
func Start(t *testing.T, cfg Config) *Harness {
	t.Helper()

	binaryPath := FindBinary(cfg.BinaryPath)
	if binaryPath == "" {
		t.Skipf("%s binary not found (check PATH or set Config.BinaryPath or %s)", BinaryName, BinaryEnv)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binaryPath, buildArgs(cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stdout pipe: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stderr pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		t.Fatalf("failed to start %s: %v", BinaryName, err)
	}

	// first line on stdout is the contract
	scanner := bufio.NewScanner(stdout)
	if !scanner.Scan() {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to read JSON contract from %s", BinaryName)
	}

	var contract outputContract
	if err := json.Unmarshal(scanner.Bytes(), &contract); err != nil {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to parse JSON contract: %v", err)
	}
	accessTTL, err := time.ParseDuration(contract.AccessTTL)
	if err != nil {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to parse access ttl %q: %v", contract.AccessTTL, err)
	}

	if !cfg.Quiet {
		go func() {
			for scanner.Scan() {
				t.Logf("[%s] %s", BinaryName, scanner.Text())
			}
		}()
		go func() {
			stderrScanner := bufio.NewScanner(stderr)
			for stderrScanner.Scan() {
				t.Logf("[%s stderr] %s", BinaryName, stderrScanner.Text())
			}
		}()
	}

	harness := &Harness{
		BaseURL:      contract.BaseURL,
		APIURL:       contract.APIURL,
		MetricsURL:   contract.MetricsURL,
		IssuerDomain: contract.IssuerDomain,
		DBPath:       contract.Paths.DBPath,
		AccessTTL:    accessTTL,
		Users:        make([]User, len(contract.Users)),
		Products:     make([]Product, len(contract.Products)),
		cmd:          cmd,
		cancel:       cancel,
	}
	for i, u := range contract.Users {
		harness.Users[i] = User{ID: u.ID, Username: u.Username, Email: u.Email, Password: u.Password, Role: u.Role}
	}
	for i, p := range contract.Products {
		harness.Products[i] = Product{ID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price}
	}

	t.Cleanup(func() {
		if err := harness.Close(); err != nil {
			t.Logf("warning: harness cleanup failed: %v", err)
		}
	})
	return harness
}

// User returns the seeded account with username.
func (h *Harness) User(username string) (User, bool) {
	for _, u := range h.Users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Close terminates the storefront-testserver process.
func (h *Harness) Close() error {
	if h.cancel != nil {
		h.cancel()
	}
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- h.cmd.Wait()
	}()

	select {
	case <-done:
		// a cancelled context kills the process, which is the expected exit
		return nil
	case <-time.After(5 * time.Second):
		if err := h.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("force kill: %w", err)
		}
		return fmt.Errorf("timeout waiting for shutdown, process killed")
	}
}

// FindBinary looks at configPath, then $STOREFRONT_TESTSERVER_BIN, then PATH.
func FindBinary(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	if envPath := os.Getenv(BinaryEnv); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	if pathBinary, err := exec.LookPath(BinaryName); err == nil {
		return pathBinary
	}
	return ""
}

func buildArgs(cfg Config) []string {
	var args []string

	if cfg.IssuerDomain != "" {
		args = append(args, "--issuer-domain", cfg.IssuerDomain)
	}
	if cfg.CatalogDir != "" {
		args = append(args, "--catalog", cfg.CatalogDir)
	}
	if cfg.NoCatalog {
		args = append(args, "--no-catalog")
	}
	if cfg.AccessTTL != 0 {
		args = append(args, "--access-ttl", cfg.AccessTTL.String())
	}
	if cfg.RefreshTTL != 0 {
		args = append(args, "--refresh-ttl", cfg.RefreshTTL.String())
	}
	if cfg.Rotate {
		args = append(args, "--rotate")
	}
	if cfg.ListenAddr != "" {
		args = append(args, "--listen", cfg.ListenAddr)
	}
	if cfg.DataDir != "" {
		args = append(args, "--data-dir", cfg.DataDir)
	}
	if cfg.Keep {
		args = append(args, "--keep")
	}
	if cfg.Quiet {
		args = append(args, "--quiet")
	}
	for _, user := range cfg.Users {
		args = append(args, "--user", fmt.Sprintf("%s:%s", user.Username, user.Password))
	}
	for _, admin := range cfg.Admins {
		args = append(args, "--admin", fmt.Sprintf("%s:%s", admin.Username, admin.Password))
	}
	return args
}
