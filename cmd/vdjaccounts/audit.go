package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/vdjaccounts/pkg/audit"
	"github.com/platinummonkey/vdjaccounts/pkg/storage/postgres"
)

type auditFlags struct {
	databaseURL string
	username    string
	eventTypes  []string
	status      string
	since       time.Duration
	limit       int
}

// NewAuditCmd creates the audit subcommand.
func NewAuditCmd() *cobra.Command {
	flags := &auditFlags{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Search the account audit trail",
		Long: `Search audit events recorded by the database sink and print them as
JSON lines, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.databaseURL == "" {
				flags.databaseURL = os.Getenv("VDJ_DATABASE_URL")
			}
			if flags.databaseURL == "" {
				return errors.New("database URL is required: set --database-url or VDJ_DATABASE_URL")
			}

			db, err := postgres.NewConnectionManager(postgres.ConnectionConfig{PrimaryURL: flags.databaseURL, MaxConns: 2}, nil)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			logger, err := audit.NewDBLogger(db.Primary())
			if err != nil {
				return err
			}
			return runAudit(cmd, logger, flags)
		},
	}

	cmd.Flags().StringVar(&flags.databaseURL, "database-url", "", "PostgreSQL URL (VDJ_DATABASE_URL)")
	cmd.Flags().StringVar(&flags.username, "username", "", "only events for this username or client id")
	cmd.Flags().StringSliceVar(&flags.eventTypes, "type", nil, "only these event types, e.g. auth.login_failed")
	cmd.Flags().StringVar(&flags.status, "status", "", "only events with this status: success, failure or denied")
	cmd.Flags().DurationVar(&flags.since, "since", 0, "only events newer than this, e.g. 24h")
	cmd.Flags().IntVar(&flags.limit, "limit", 100, "maximum number of events")

	return cmd
}

// auditSearcher is satisfied by audit.DBLogger
type auditSearcher interface {
	Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.Event, error)
}

func runAudit(cmd *cobra.Command, searcher auditSearcher, flags *auditFlags) error {
	filter := audit.SearchFilter{
		Username: flags.username,
		Status:   audit.EventStatus(flags.status),
		Limit:    flags.limit,
	}
	for _, t := range flags.eventTypes {
		filter.EventTypes = append(filter.EventTypes, audit.EventType(t))
	}
	if flags.since > 0 {
		since := time.Now().Add(-flags.since)
		filter.Since = &since
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	events, err := searcher.Search(ctx, filter)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return err
		}
	}
	return nil
}
