package shiplabelcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phillip-england/shiplabel/internal/apiapp"
	"github.com/phillip-england/shiplabel/internal/batch"
	"github.com/phillip-england/shiplabel/internal/clientapp"
	"github.com/phillip-england/shiplabel/internal/config"
	"github.com/phillip-england/shiplabel/internal/envutil"
	"github.com/phillip-england/shiplabel/internal/logging"
	"github.com/phillip-england/shiplabel/internal/orders"
	"github.com/phillip-england/shiplabel/internal/storage"
)

var ErrUsage = errors.New("usage")

func Execute(args []string) error {
	return execute(args, os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func PrintUsage(w io.Writer) {
	root := newRootCmd()
	root.SetOut(w)
	_ = root.Usage()
}

func usageError(msg string) error {
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}

func exactArgs(n int, msg string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError(msg)
		}
		return nil
	}
}

type rootOptions struct {
	configPath string
	envPath    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "shiplabel",
		Short:         "Generate 4x6 shipping labels from order exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError("shiplabel <setup|run|invoices|generate> [...]")
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err.Error())
	})
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to TOML config file")
	root.PersistentFlags().StringVar(&opts.envPath, "env-file", ".env", "path to .env file")

	root.AddCommand(
		newSetupCmd(opts),
		newRunCmd(opts),
		newInvoicesCmd(opts),
		newGenerateCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	if err := envutil.LoadDotEnv(o.envPath); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", o.envPath, err)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newSetupCmd(opts *rootOptions) *cobra.Command {
	var (
		apiAddr    string
		clientAddr string
		dataDir    string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a starter .env file",
		Args:  exactArgs(0, "shiplabel setup [--force]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]string{
				"API_ADDR":        apiAddr,
				"CLIENT_ADDR":     clientAddr,
				"API_BASE_URL":    "http://localhost" + apiAddr,
				"DATA_DIR":        dataDir,
				"LOG_LEVEL":       "info",
				"RETENTION_HOURS": "24",
			}
			if err := envutil.WriteDotEnv(opts.envPath, values, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.envPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiAddr, "api-addr", ":8080", "API listen address")
	cmd.Flags().StringVar(&clientAddr, "client-addr", ":3000", "client listen address")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory for uploads and generated labels")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing env file")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run api|client|all",
		Short: "Run the API, the browser client or both",
		Args:  exactArgs(1, "missing run target: api | client | all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			switch args[0] {
			case "api":
				return runAPI(ctx, cfg, logger)
			case "client":
				return runClient(ctx, cfg, logger)
			case "all":
				return runAll(ctx, cfg, logger)
			default:
				return usageError(fmt.Sprintf("unknown run target %q", args[0]))
			}
		},
	}
}

func apiConfig(cfg *config.Config, logger *zap.Logger) (apiapp.Config, error) {
	store, err := storage.New(cfg.Storage.DataDir)
	if err != nil {
		return apiapp.Config{}, err
	}
	if retention := cfg.Retention(); retention > 0 {
		removed, err := store.Purge(retention)
		if err != nil {
			logger.Warn("purge expired files", zap.Error(err))
		} else if removed > 0 {
			logger.Info("purged expired files", zap.Int("removed", removed))
		}
	}
	layout, err := cfg.Layout()
	if err != nil {
		return apiapp.Config{}, err
	}
	fill, err := cfg.FillColumns()
	if err != nil {
		return apiapp.Config{}, err
	}
	return apiapp.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ImageMaxWidth:  cfg.Label.ImageMaxWidth,
		Fill:           fill,
		Layout:         layout,
		Storage:        store,
		Logger:         logger.Named("api"),
	}, nil
}

func runAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	apiCfg, err := apiConfig(cfg, logger)
	if err != nil {
		return err
	}
	if err := apiapp.Run(ctx, apiCfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	clientCfg := clientapp.Config{
		Addr:         cfg.Server.ClientAddr,
		APIBaseURL:   cfg.Server.APIBaseURL,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		Logger:       logger.Named("client"),
	}
	if err := clientapp.Run(ctx, clientCfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAll(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	errCh := make(chan error, 2)

	go func() { errCh <- runAPI(ctx, cfg, logger) }()
	go func() {
		time.Sleep(500 * time.Millisecond)
		errCh <- runClient(ctx, cfg, logger)
	}()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

func newInvoicesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invoices <spreadsheet>",
		Short: "List the invoices found in a spreadsheet",
		Args:  exactArgs(1, "shiplabel invoices <spreadsheet>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			grouper, err := loadGrouper(cfg, args[0])
			if err != nil {
				return err
			}
			for _, id := range grouper.Invoices() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var file, start, end, header, footer, out string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a range of invoices into a label archive",
		Args:  exactArgs(0, "shiplabel generate --file <spreadsheet> [--start id] [--end id]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return usageError("--file is required")
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			grouper, err := loadGrouper(cfg, file)
			if err != nil {
				return err
			}
			invoices := grouper.Invoices()
			if len(invoices) == 0 {
				return errors.New("spreadsheet has no invoices")
			}
			if start == "" {
				start = invoices[0]
			}
			if end == "" {
				end = invoices[len(invoices)-1]
			}

			layout, err := cfg.Layout()
			if err != nil {
				return err
			}
			workDir, err := os.MkdirTemp("", "shiplabel-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(workDir)

			gen := batch.NewGenerator(layout.WithImages(header, footer), logger)
			result, err := gen.Generate(grouper, start, end, workDir)
			if err != nil {
				return err
			}
			if err := ensureParentDirs(out); err != nil {
				return err
			}
			if err := copyFile(result.ArchivePath, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d labels, %d skipped)\n", out, len(result.Documents), len(result.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "spreadsheet to read (.xlsx, .xls, optionally .xz compressed)")
	cmd.Flags().StringVar(&start, "start", "", "first invoice (defaults to the lowest)")
	cmd.Flags().StringVar(&end, "end", "", "last invoice (defaults to the highest)")
	cmd.Flags().StringVar(&header, "header", "", "header image")
	cmd.Flags().StringVar(&footer, "footer", "", "footer image")
	cmd.Flags().StringVar(&out, "out", batch.ArchiveName, "archive output path")
	return cmd
}

func loadGrouper(cfg *config.Config, path string) (*orders.Grouper, error) {
	fill, err := cfg.FillColumns()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orders.ErrMissingFile, err)
	}
	defer f.Close()
	table, err := orders.ReadTable(f, path)
	if err != nil {
		return nil, err
	}
	return orders.NewGrouper(table, fill)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
