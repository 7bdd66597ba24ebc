package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/chmdznr/csync/internal/app"
	"github.com/chmdznr/csync/internal/config"
	"github.com/chmdznr/csync/internal/db"
	"github.com/chmdznr/csync/pkg/utils"
	"github.com/chmdznr/csync/pkg/version"
)

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	cliApp := &cli.App{
		Name:                 "csync",
		Usage:                "Two-way file sync with a cloud folder plus periodic zipped backups",
		Version:              version.Version,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file (JSON or YAML)",
				Value:   config.DefaultPath,
				EnvVars: []string{"CSYNC_CONFIG"},
			},
		},
		Action: runLoop,
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("Version:    %s\n", version.Version)
					fmt.Printf("Git commit: %s\n", version.GitCommit)
					fmt.Printf("Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:   "run",
				Usage:  "Sync on the configured schedule and back up when due, until interrupted",
				Action: runLoop,
			},
			{
				Name:  "sync",
				Usage: "Run a single sync pass",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Log what would be transferred without transferring",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar per transfer",
					},
				},
				Action: runSync,
			},
			{
				Name:  "backup",
				Usage: "Create a backup if the newest one is older than the interval",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Create a backup regardless of the interval",
					},
				},
				Action: runBackup,
			},
			{
				Name:  "status",
				Usage: "Show transfer journal statistics",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "recent",
						Usage: "Number of recent transfers to list",
						Value: 10,
					},
				},
				Action: showStatus,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
}

func runLoop(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	a, err := app.New(ctx, app.Options{ConfigPath: c.String("config")})
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.Runner(ctx)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

func runSync(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	a, err := app.New(ctx, app.Options{
		ConfigPath:   c.String("config"),
		DryRun:       c.Bool("dry-run"),
		ShowProgress: c.Bool("progress"),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Syncer.Sync(ctx, a.Config.FolderID, a.Config.FileMappings)
	if err != nil {
		return fmt.Errorf("failed to sync files: %w", err)
	}

	fmt.Printf("Sync completed in %s:\n", report.Duration.Round(time.Millisecond))
	fmt.Printf("- Created:    %d\n", report.Created)
	fmt.Printf("- Updated:    %d (%s uploaded)\n", report.Updated, utils.FormatSize(report.BytesUp))
	fmt.Printf("- Downloaded: %d (%s)\n", report.Downloaded, utils.FormatSize(report.BytesDown))
	fmt.Printf("- Up to date: %d\n", report.Skipped)
	fmt.Printf("- Unmapped:   %d\n", report.Unmapped)
	return nil
}

func runBackup(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	a, err := app.New(ctx, app.Options{ConfigPath: c.String("config")})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Config.Backup.Enabled() {
		return fmt.Errorf("backup.folder_id is not configured")
	}

	result, err := a.Backups.Run(ctx, a.Config.Backup.FolderID, a.Config.Backup.Interval(), a.Config.FileMappings, c.Bool("force"))
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	if result.Skipped {
		fmt.Printf("Backup skipped: %s was uploaded %s\n",
			result.Latest.Name, result.Latest.ModifiedTime.Local().Format("2006-01-02 15:04:05"))
		return nil
	}
	fmt.Printf("Uploaded %s: %d files (%s)\n", result.Name, result.Files, utils.FormatSize(result.Size))
	return nil
}

// showStatus prints journal totals and the latest transfers. It reads the
// journal only and does not contact the remote store.
func showStatus(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if cfg.Journal.Disabled {
		return fmt.Errorf("journal is disabled in %s", c.String("config"))
	}

	journal, err := db.New(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	stats, err := journal.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("Remote folder: %s (%s)\n", cfg.FolderID, cfg.Remote.Backend)
	fmt.Printf("Mapped files:  %d\n", len(cfg.FileMappings))
	fmt.Printf("Transfers:     %d (failed: %d)\n", stats.TotalTransfers, stats.Failed)
	fmt.Printf("Uploaded:      %d new, %d updated (%s)\n", stats.Created, stats.Updated, utils.FormatSize(stats.UploadedSize))
	fmt.Printf("Downloaded:    %d (%s)\n", stats.Downloaded, utils.FormatSize(stats.DownloadedSize))
	fmt.Printf("Backups:       %d\n", stats.Backups)
	if !stats.LastBackup.IsZero() {
		fmt.Printf("Last backup:   %s\n", stats.LastBackup.Local().Format("2006-01-02 15:04:05"))
	}

	recent, err := journal.RecentTransfers(c.Int("recent"))
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Println("\nRecent transfers:")
	}
	for _, t := range recent {
		line := fmt.Sprintf("  %s  %-8s  %-9s  %s", t.Time.Local().Format("2006-01-02 15:04:05"), t.Direction, t.Status, t.Name)
		if t.Error != "" {
			line += "  (" + t.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
