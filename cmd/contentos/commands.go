package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/service"
)

func newSweepCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Publish every scheduled record that is due, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, appLogger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer appLogger.Sync()

			lock := flock.New(cfg.Scheduler.LockFile)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire sweep lock: %w", err)
			}
			if !ok {
				return errors.New("another sweep is already running")
			}
			defer func() { _ = lock.Unlock() }()

			manager, err := service.NewChannelManager(cfg, appLogger)
			if err != nil {
				return err
			}
			projects, err := service.OpenProjects(cfg, manager, appLogger)
			if err != nil {
				return err
			}
			defer func() {
				if err := projects.Close(); err != nil {
					appLogger.Warn("Failed to close project databases", zap.Error(err))
				}
			}()

			report := projects.RunDueSweep(cmd.Context(), time.Now())

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			rows := make([][]string, 0, len(report.Results))
			for _, item := range report.Results {
				rows = append(rows, []string{item.Project, item.ID, item.Channel, item.Status, item.Error})
			}
			if len(rows) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Project", "ID", "Channel", "Status", "Error"}, rows))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d: %d success, %d failed, %d skipped\n",
				report.Processed,
				report.Count(service.SweepSuccess),
				report.Count(service.SweepFailed),
				report.Count(service.SweepSkipped))
			for _, msg := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the sweep report as JSON")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var projectID string
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print content and publishing statistics per project",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, appLogger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer appLogger.Sync()

			manager, err := service.NewChannelManager(cfg, appLogger)
			if err != nil {
				return err
			}
			projects, err := service.OpenProjects(cfg, manager, appLogger)
			if err != nil {
				return err
			}
			defer func() { _ = projects.Close() }()

			selected := projects.List()
			if projectID != "" {
				p, err := projects.Get(projectID)
				if err != nil {
					return err
				}
				selected = []*service.Project{p}
			}

			out := cmd.OutOrStdout()
			for _, p := range selected {
				summary, err := p.Stats.Summary(cmd.Context(), days)
				if err != nil {
					return fmt.Errorf("project %s: %w", p.ID, err)
				}
				printSummary(out, p, summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "only report this project")
	cmd.Flags().IntVar(&days, "days", 14, "days of daily publish history")
	return cmd
}

func printSummary(out io.Writer, p *service.Project, summary *service.DashboardSummary) {
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)

	statusRows := make([][]string, 0, len(summary.Statuses))
	for _, s := range summary.Statuses {
		statusRows = append(statusRows, []string{string(s.Status), strconv.FormatInt(s.Count, 10)})
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, statusRows, 1))

	if len(summary.Performance) > 0 {
		perfRows := make([][]string, 0, len(summary.Performance))
		for _, perf := range summary.Performance {
			perfRows = append(perfRows, []string{
				perf.Platform,
				strconv.FormatInt(perf.Success, 10),
				strconv.FormatInt(perf.Failed, 10),
				strconv.FormatInt(perf.Pending, 10),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Channel", "Success", "Failed", "Pending"}, perfRows, 1, 2, 3))
	}
}

func newTOTPSecretCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "totp-secret",
		Short: "Generate a TOTP secret for operator authentication",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := service.NewAuthService(zap.NewNop(), "", "")
			secret, url, err := auth.GenerateSecret("contentos", account)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "secret: %s\nurl:    %s\n", secret, url)
			fmt.Fprintln(cmd.OutOrStdout(), "set auth.totp_secret to the secret to require X-TOTP-Code on operator mutations")
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "operator", "account name shown in the authenticator app")
	return cmd
}
