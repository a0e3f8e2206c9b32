package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/api"
	"github.com/nextdomen/mextdomen/internal/auth"
	"github.com/nextdomen/mextdomen/internal/config"
	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/events"
	"github.com/nextdomen/mextdomen/internal/grpcapi"
	"github.com/nextdomen/mextdomen/internal/ldapserver"
	"github.com/nextdomen/mextdomen/internal/models"
	"github.com/nextdomen/mextdomen/internal/raddb"
	"github.com/nextdomen/mextdomen/internal/scheduler"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "mextdomend",
		Short: "mextdomend — directory server",
		Long: `mextdomend is the central component of the mextdomen directory
service. It exposes an LDAP listener, a gRPC API, and a REST API over a
single encrypted directory store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	root.AddCommand(newVersionCmd())
	root.PersistentFlags().StringVar(&configPath, "config", envOrDefault("MEXTDOMEN_CONFIG", "./config.yaml"), "path to the YAML configuration file")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mextdomend %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting mextdomend",
		zap.String("version", version),
		zap.String("web_addr", cfg.WebServer.Address),
		zap.String("grpc_addr", cfg.GRPCServer.Address),
		zap.String("ldap_addr", cfg.LDAPServer.Address),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- 1. Master key ---
	keyBytes, err := hex.DecodeString(cfg.MasterKeyHex)
	if err != nil || len(keyBytes) != 32 {
		return fmt.Errorf("config: master_key_hex must decode to 32 bytes")
	}
	var masterKey raddb.MasterKey
	copy(masterKey[:], keyBytes)

	// --- 2. Directory store ---
	dataDir := filepath.Dir(cfg.DBPath)
	if dataDir == "" || dataDir == "." {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	dir, err := directory.Open(dataDir, masterKey, logger)
	if err != nil {
		return fmt.Errorf("failed to open directory store: %w", err)
	}
	defer func() {
		if err := dir.Close(); err != nil {
			logger.Warn("directory close error", zap.Error(err))
		}
	}()

	// --- 3. Audit event hub ---
	hub := events.NewHub()
	go hub.Run(ctx)
	dir.SetEventHub(hub)

	// --- 4. Bootstrap domain ---
	domain, err := bootstrapDomain(dir, cfg.LDAPServer.BaseDN)
	if err != nil {
		return fmt.Errorf("failed to bootstrap domain: %w", err)
	}

	// --- 5. Auth ---
	jwtManager, err := buildJWTManager(cfg.Paths.KeysDir, cfg.Security.JWT, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT manager: %w", err)
	}
	authSvc := auth.NewService(dir, jwtManager)

	// --- 6. Scheduler ---
	sched, err := scheduler.New(dir, scheduler.Config{
		MaxAgeDays: cfg.Security.PasswordPolicy.MaxAgeDays,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("scheduler shutdown error", zap.Error(err))
		}
	}()

	// --- 7. LDAP server ---
	ldapSrv := ldapserver.New(ldapserver.Config{
		ListenAddr: cfg.LDAPServer.Address,
		CertFile:   cfg.LDAPServer.TLS.CertFile,
		KeyFile:    cfg.LDAPServer.TLS.KeyFile,
	}, dir, domain, logger)

	go func() {
		if err := ldapSrv.ListenAndServe(ctx); err != nil {
			logger.Error("ldap server error", zap.Error(err))
			cancel()
		}
	}()

	// --- 8. gRPC server ---
	grpcSrv := grpcapi.New(dir, authSvc, logger)

	go func() {
		if err := grpcSrv.ListenAndServe(ctx, grpcapi.Config{ListenAddr: cfg.GRPCServer.Address}); err != nil {
			logger.Error("grpc server error", zap.Error(err))
			cancel()
		}
	}()

	// --- 9. HTTP (REST) server ---
	router := api.NewRouter(api.RouterConfig{
		Dir:            dir,
		Auth:           authSvc,
		Hub:            hub,
		Logger:         logger,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	httpSrv := buildHTTPServer(cfg.WebServer.Address, router)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.WebServer.Address))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down mextdomend")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server graceful shutdown error", zap.Error(err))
	}

	logger.Info("mextdomend stopped")
	return nil
}

// bootstrapDomain returns the directory's first domain, creating one from
// baseDN (e.g. "DC=example,DC=test" -> "example.test") on a fresh store.
func bootstrapDomain(dir *directory.Service, baseDN string) (*models.Domain, error) {
	domains, err := dir.GetAllDomains()
	if err != nil {
		return nil, err
	}
	if len(domains) > 0 {
		return &domains[0], nil
	}

	dnsName := dnsNameFromBaseDN(baseDN)
	domain := models.NewDomainWithDefaults(dnsName, dnsName, models.NewNTAuthoritySID(21))
	if err := dir.CreateDomain(&domain); err != nil {
		return nil, err
	}
	return &domain, nil
}

// dnsNameFromBaseDN derives a DNS name from an LDAP base DN's DC components,
// e.g. "DC=example,DC=test" -> "example.test".
func dnsNameFromBaseDN(baseDN string) string {
	parts := strings.Split(baseDN, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if v, ok := strings.CutPrefix(p, "DC="); ok {
			labels = append(labels, v)
		}
	}
	if len(labels) == 0 {
		return "example.test"
	}
	return strings.Join(labels, ".")
}

// buildJWTManager loads RSA keys from the configured key paths, falling back
// to the JWT_PRIVATE_KEY_PATH/JWT_PUBLIC_KEY_PATH environment variables and
// then to jwt_private.pem/jwt_public.pem under keysDir. It generates
// ephemeral in-memory keys for development when no private key path is
// known or the private key file does not exist.
func buildJWTManager(keysDir string, jwtCfg config.JWT, logger *zap.Logger) (*auth.JWTManager, error) {
	privPath := jwtCfg.PrivateKeyPath
	pubPath := jwtCfg.PublicKeyPath
	if privPath == "" {
		privPath = os.Getenv("JWT_PRIVATE_KEY_PATH")
	}
	if pubPath == "" {
		pubPath = os.Getenv("JWT_PUBLIC_KEY_PATH")
	}

	if keysDir == "" && privPath == "" {
		logger.Warn("no keys_dir configured — using ephemeral in-memory JWT keys (tokens invalidated on restart)")
		return auth.NewJWTManagerGenerated("mextdomen")
	}

	if privPath == "" {
		privPath = filepath.Join(keysDir, "jwt_private.pem")
	}
	if pubPath == "" {
		pubPath = filepath.Join(keysDir, "jwt_public.pem")
	}

	if _, err := os.Stat(privPath); err == nil {
		logger.Info("loading JWT keys from disk", zap.String("private", privPath))
		return auth.NewJWTManagerFromFiles(privPath, pubPath, "mextdomen", jwtCfg.Algorithm, jwtCfg.TokenExpiry)
	}

	logger.Warn("JWT key files not found — using ephemeral in-memory keys (tokens invalidated on restart)",
		zap.String("expected_private", privPath),
	)
	return auth.NewJWTManagerGenerated("mextdomen")
}

func buildLogger(cfg config.Logging) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.EnableJSONOutput {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if cfg.LogFile != "" {
		zapCfg.OutputPaths = []string{cfg.LogFile}
	}

	return zapCfg.Build()
}

func buildHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
