package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dpc-go/internal/app"
	"dpc-go/internal/config"
	"dpc-go/internal/dpc"
	"dpc-go/internal/encryption"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, dpc.ErrConsistencyViolation) {
			fmt.Fprintln(os.Stderr, "The cache may be inconsistent; run `dpc verify` on the directory.")
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file, or defaults when there is none.
func loadConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := app.LoadConfig(defaults["config_path"], defaults)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates a DPCApp. The caller must close it.
// operation identifies the CLI command being run (e.g. "Scan", "Verify").
func newApp(ctx context.Context, operation, parameters string) (*app.DPCApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewDPCApp(ctx, cfg, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// closeApp closes a and reports a close failure unless the command
// already failed.
func closeApp(a *app.DPCApp, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:          "dpc",
	Short:        "Directory properties cache",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.LoadDotEnv(".env")
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s", cfg.Database.Type)
		switch {
		case cfg.Database.Path != "":
			fmt.Printf(" (%s)", cfg.Database.Path)
		case cfg.Database.DataDir != "":
			fmt.Printf(" (%s)", filepath.Join(cfg.Database.DataDir, cfg.HostID+".db"))
		}
		fmt.Println()
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair used to encrypt archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}
		if enc == nil {
			return fmt.Errorf("encryption is disabled: set type = \"age\" in the [encryption] section first")
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := enc.Setup(pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Keys written to %s\n", filepath.Dir(cfg.Encryption.PrivateKeyPath))
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [PATH]",
	Short: "Cache file dates of a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		recursive, _ := cmd.Flags().GetBool("recursive")
		target := targetArg(args)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "Scan", target)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		results, err := a.Scan(ctx, target, recursive)
		for _, r := range results {
			fmt.Printf("%s  +%d -%d ~%d =%d\n", r.Path, r.Added, r.Removed, r.Modified, r.Unchanged)
		}
		if err != nil {
			return err
		}
		if len(results) > 1 {
			fmt.Printf("Scanned %s directories\n", humanize.Comma(int64(len(results))))
		}
		return nil
	},
}

// apply command
var applyCmd = &cobra.Command{
	Use:   "apply [PATH]",
	Short: "Restore cached modification dates",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		target := targetArg(args)

		a, err := newApp(cmd.Context(), "ApplyDates", target)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.ApplyDates(target)
		if err != nil {
			return err
		}
		fmt.Printf("Restored dates of %s file(s)\n", humanize.Comma(int64(n)))
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log [PATH]",
	Short: "View the action log of a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		target := targetArg(args)

		a, err := newApp(cmd.Context(), "History", target)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		actions, err := a.History(target)
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			fmt.Println("No actions recorded.")
			return nil
		}

		for _, act := range actions {
			fmt.Printf("#%d  %-9s  %s  (%s)\n",
				act.ID,
				act.Kind,
				act.CachedDate.Local().Format("2006-01-02 15:04:05"),
				humanize.Time(act.CachedDate),
			)
		}
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files [PATH]",
	Short: "View cached file records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		target := targetArg(args)

		a, err := newApp(cmd.Context(), "Files", target)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		files, err := a.Files(target)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No files cached.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCREATED\tMODIFIED\tCACHED")
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				f.Name,
				f.CreatedDate.Local().Format("2006-01-02 15:04:05"),
				f.ModifiedDate.Local().Format("2006-01-02 15:04:05"),
				humanize.Time(f.CachedDate),
			)
		}
		return tw.Flush()
	},
}

// dirs command
var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "List tracked directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "Directories", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		dirs, err := a.Directories()
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			fmt.Println("No directories tracked.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STATE\tFILES\tLAST ACTION\tPATH")
		for _, d := range dirs {
			last := "-"
			if d.LastAction != nil {
				last = fmt.Sprintf("%s %s", d.LastAction.Kind, humanize.Time(d.LastAction.CachedDate))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.State, humanize.Comma(int64(d.Files)), last, d.Directory.Path)
		}
		return tw.Flush()
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [PATH]",
	Short: "Check the cache of a directory for consistency",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		target := targetArg(args)

		a, err := newApp(cmd.Context(), "Verify", target)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		report, err := a.Verify(target)
		if report != nil {
			fmt.Printf("%s: %d file(s), %d action(s)\n", report.Path, report.Files, report.Actions)
			for _, p := range report.Problems {
				fmt.Printf("  %s\n", p)
			}
			if report.OK() {
				fmt.Println("OK")
			}
		}
		return err
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch [PATH...]",
	Short: "Rescan directories when they change",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		recursive, _ := cmd.Flags().GetBool("recursive")
		if len(args) == 0 {
			args = []string{"."}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "Watch", strings.Join(args, " "))
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		fmt.Fprintln(os.Stderr, "Watching; press Ctrl-C to stop.")
		return a.Watch(ctx, args, recursive)
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the archived database",
}

var archivePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download and decrypt the archived database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%s already exists", out)
		}

		tmp := out + ".partial"
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}

		err = app.PullArchive(cmd.Context(), cfg, f, func() (string, error) {
			return readPassphrase("Passphrase: ")
		})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(tmp)
			return err
		}

		if err := os.Rename(tmp, out); err != nil {
			return fmt.Errorf("finalizing output file: %w", err)
		}
		fmt.Printf("Archived database written to %s\n", out)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// archive subcommands
	archiveCmd.AddCommand(archivePullCmd)
	archivePullCmd.Flags().StringP("out", "o", "", "File to write the database to")
	archivePullCmd.MarkFlagRequired("out")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(dirsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolP("recursive", "r", false, "Watch subdirectories too")
	rootCmd.AddCommand(archiveCmd)
}
