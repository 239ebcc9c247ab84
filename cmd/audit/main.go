package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"oncall-roster-audit/internal/audit"
	"oncall-roster-audit/internal/config"
	"oncall-roster-audit/internal/export"
	"oncall-roster-audit/internal/logger"
	"oncall-roster-audit/internal/opsgenie"
)

func main() {
	// Load environment variables from .env file in development
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using system environment variables")
	}

	startFlag := pflag.String("start", "", "target range start (YYYY-MM-DD), defaults to the current quarter")
	endFlag := pflag.String("end", "", "target range end (YYYY-MM-DD), defaults to the current quarter")
	apply := pflag.Bool("apply", false, "downgrade the computed candidates")
	users := pflag.StringSlice("users", nil, "downgrade exactly these usernames instead of the audit result")
	exportCSV := pflag.Bool("export", true, "write the flattened timeline CSV")
	pflag.String("role", "", "role to assign on downgrade")
	pflag.Parse()

	// The role flag overrides the DOWNGRADE_ROLE environment setting
	if f := pflag.Lookup("role"); f.Changed {
		if err := viper.BindPFlag("DOWNGRADE_ROLE", f); err != nil {
			log.Fatal("Failed to bind role flag:", err)
		}
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Set up logging
	if err := logger.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatal("Failed to set up logging:", err)
	}

	target, err := targetRange(*startFlag, *endFlag)
	if err != nil {
		logrus.Fatal("Invalid target range: ", err)
	}

	ctx := context.Background()
	client := opsgenie.NewClient(cfg)
	service := audit.NewService(client, cfg)

	result, err := service.Run(ctx, target)
	if err != nil {
		logrus.Fatal("Audit failed: ", err)
	}

	logrus.Infof("Audit %s complete: %d users, %d on call, %d admins, %d downgrade candidate(s)",
		result.RunID, len(result.AllUsers), len(result.OnCall), len(result.Admins), len(result.Candidates))
	for _, name := range result.Candidates {
		logrus.Infof("Downgrade candidate: %s", name)
	}

	if *exportCSV && cfg.ExportFile != "" {
		if err := export.WriteEntries(cfg.ExportFile, result.Entries); err != nil {
			logrus.Errorf("Failed to export timeline data: %v", err)
		} else {
			logrus.Infof("Timeline data exported to %s", cfg.ExportFile)
		}
	}

	targets := result.Candidates
	switch {
	case len(*users) > 0:
		// An explicit user list is an explicit instruction to downgrade
		targets = *users
	case !*apply:
		logrus.Info("Dry run: pass --apply to downgrade the candidates, or --users to name users directly")
		return
	}

	workflow := audit.NewWorkflow(client, cfg)
	report := workflow.Downgrade(ctx, targets, cfg.DowngradeRole)
	logrus.Infof("Downgrade report %s: %d role change(s), %d skipped", report.RunID, report.Changed(), report.Skipped())
	for _, o := range report.Outcomes {
		if o.Status == audit.StatusSkipped {
			logrus.Warnf("User %s skipped: %s", o.Username, o.Reason)
		}
	}
}

// targetRange parses the start/end flags, defaulting to the current calendar
// quarter. The end bound is exclusive.
func targetRange(startStr, endStr string) (audit.Range, error) {
	now := time.Now().UTC()
	quarterStart := time.Date(now.Year(), time.Month((int(now.Month())-1)/3*3+1), 1, 0, 0, 0, 0, time.UTC)

	target := audit.Range{
		Start: quarterStart,
		End:   quarterStart.AddDate(0, 3, 0),
	}
	var err error
	if startStr != "" {
		if target.Start, err = parseDate(startStr); err != nil {
			return audit.Range{}, err
		}
	}
	if endStr != "" {
		if target.End, err = parseDate(endStr); err != nil {
			return audit.Range{}, err
		}
	}
	if !target.Start.Before(target.End) {
		return audit.Range{}, fmt.Errorf("start %s is not before end %s", target.Start, target.End)
	}
	return target, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q (want YYYY-MM-DD or RFC3339)", s)
	}
	return t.UTC(), nil
}
