package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/repositories"
	"github.com/desertthunder/floe/internal/shared"
	"github.com/desertthunder/floe/internal/tasks"
	"github.com/urfave/cli/v3"
)

// openArchive opens the archive database when it has been initialized.
// Returns nil when the database file does not exist; archival is optional.
func (r *Runner) openArchive() (*repositories.HistoryArchive, func(), error) {
	path := r.config.Storage.DatabasePath
	if path == "" {
		return nil, func() {}, nil
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, nil, err
	}

	shared.ConfigureDatabase(db, r.config.Storage.MaxOpenConns, r.config.Storage.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repositories.NewHistoryArchive(db), func() { db.Close() }, nil
}

// Sync runs one end-to-end sync and prints the report.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	if err := r.config.Validate(); err != nil {
		return err
	}

	if archive, closeDB, err := r.openArchive(); err != nil {
		r.logger.Warn("archive unavailable, continuing without it", "error", err)
	} else if archive != nil {
		defer closeDB()
		r.engine.WithArchive(archive)
	}

	var progress chan tasks.ProgressUpdate
	var wg sync.WaitGroup

	if !cmd.Bool("quiet") {
		progress = make(chan tasks.ProgressUpdate, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for update := range progress {
				_ = r.writePlainln("%s", update.Message)
			}
		}()
	}

	report, err := r.engine.Run(ctx, int(cmd.Int("limit")), progress)
	if progress != nil {
		close(progress)
		wg.Wait()
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}
	return r.printReport(report)
}

func (r *Runner) printReport(report *models.SyncReport) error {
	if err := r.writePlainln("Status: %s", report.Status); err != nil {
		return err
	}
	if err := r.writePlainln("Songs fetched: %d (%d cached, %d newly categorized)",
		report.SongsFetched, report.Cached, report.NewCategorization); err != nil {
		return err
	}
	if err := r.writePlainln("Songs added: %d", report.TotalAdded); err != nil {
		return err
	}

	for key, breakdown := range report.Breakdown {
		if err := r.writePlainln("  %s: %d/%d added", key, breakdown.Added, breakdown.Attempted); err != nil {
			return err
		}
	}

	for _, step := range report.Steps {
		if step.Outcome == models.OutcomeSuccess {
			continue
		}
		if err := r.writePlainln("  %s %s: %s", step.Name, step.Outcome, step.Reason); err != nil {
			return err
		}
	}

	if report.Error != "" {
		return r.writePlainln("Error: %s", report.Error)
	}
	return nil
}
