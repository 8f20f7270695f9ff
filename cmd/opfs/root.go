package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/muesli/coral"
	"go.uber.org/zap"

	"github.com/fairDataSociety/fairdrive-opfs/internal/config"
	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/internal/metrics"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/connect"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/handle"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

var (
	rootFlags = struct {
		cfgFile  string
		provider string
		logLevel string
	}{}

	env           *config.Config
	module        *connect.Module
	metricsServer *http.Server

	rootCmd = &coral.Command{
		Use:               "opfs",
		Short:             "Browse and transfer files across storage providers",
		Long:              "opfs lists, reads and writes files on FairOS pods, IPFS MFS, S3, MinIO and blob buckets through one mount-scoped interface.",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.cfgFile, "config", "c", "", "provider configuration file (default $OPFS_CONFIG or opfs.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootFlags.provider, "provider", "p", "", "provider name from the configuration file")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")
}

func setup(cmd *coral.Command, args []string) error {
	var err error
	env, err = config.Load()
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		env.LogLevel = rootFlags.logLevel
	}
	if rootFlags.cfgFile != "" {
		env.ConfigPath = rootFlags.cfgFile
	}
	if rootFlags.provider != "" {
		env.Provider = rootFlags.provider
	}

	if err := logging.Init(logging.Config{Level: env.LogLevel, Format: env.LogFormat, OutputPath: "stderr"}); err != nil {
		return fmt.Errorf("logging init: %w", err)
	}

	cfg, err := connect.LoadConfigFile(env.ConfigPath)
	if err != nil {
		return err
	}
	if env.Username != "" {
		name := env.Provider
		if name == "" {
			name = cfg.Default
		}
		cfg.WithCredentials(name, env.Username, env.Password)
	}
	module = connect.NewModule(cfg, nil)

	if env.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              env.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info("metrics server listening", zap.String("addr", env.MetricsAddr))
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}
	return nil
}

func teardown(cmd *coral.Command, args []string) {
	if module != nil {
		if err := module.Close(); err != nil {
			logging.Warn("closing providers", zap.Error(err))
		}
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		metricsServer.Shutdown(ctx)
		cancel()
	}
	logging.Sync()
}

// commandContext applies the configured per-command deadline.
func commandContext(cmd *coral.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if env != nil && env.Timeout > 0 {
		return context.WithTimeout(ctx, env.Timeout)
	}
	return context.WithCancel(ctx)
}

// selectedProvider connects the provider chosen by flag, environment or the
// configuration default.
func selectedProvider(ctx context.Context) (provider.Provider, error) {
	name := env.Provider
	if name == "" {
		name = module.Config().Default
	}
	if name == "" {
		names := module.Config().Names()
		if len(names) != 1 {
			return nil, fmt.Errorf("%w: choose one of %s with --provider", connect.ErrUnknownProvider, strings.Join(names, ", "))
		}
		name = names[0]
	}
	return module.Connect(ctx, name)
}

// folderAt returns a handle on dir inside mount. The handle descends into
// subdirectories so nested paths resolve.
func folderAt(ctx context.Context, p provider.Provider, mount, dir string) *handle.FolderHandle {
	m := driver.Mount{Name: mount, Path: path.Join("/", dir)}
	return p.FSHandle(ctx, m, handle.WithDescend(), handle.WithMaxDownloadSize(env.MaxDownloadSize))
}

// splitRemote splits "a/b/c.txt" into ("a/b", "c.txt").
func splitRemote(name string) (string, string) {
	name = strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/")
	dir, leaf := path.Split(name)
	return dir, leaf
}
