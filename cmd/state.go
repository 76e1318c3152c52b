package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/shared"
	"github.com/urfave/cli/v3"
)

// CollectionsList prints the configured collections.
func (r *Runner) CollectionsList(ctx context.Context, cmd *cli.Command) error {
	collections, err := r.store.LoadCollections()
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(collections, true)
	}

	if len(collections) == 0 {
		return r.writePlainln("No collections configured. Add one with: floe collections add --name <name>")
	}

	for _, c := range collections {
		status := "unprovisioned"
		if c.RemoteID != "" {
			status = c.RemoteID
		}
		if err := r.writePlainln("%s\t%s\t%s\t%s", c.Key, c.Name, status, c.Description); err != nil {
			return err
		}
	}
	return nil
}

// CollectionsAdd creates a collection and provisions its remote playlist.
// Provisioning failures are logged; the next sync run retries.
func (r *Runner) CollectionsAdd(ctx context.Context, cmd *cli.Command) error {
	collection := models.Collection{
		Key:         shared.Slugify(cmd.String("name")),
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
	}
	if err := collection.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	collections, err := r.store.LoadCollections()
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}

	for _, existing := range collections {
		if existing.Key == collection.Key {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateKey, collection.Key)
		}
	}

	if r.playlists != nil {
		id, err := r.playlists.FindPlaylistByName(ctx, collection.Name)
		if err == nil && id == "" {
			id, err = r.playlists.CreatePlaylist(ctx, collection.Name, collection.Description)
		}
		if err != nil {
			r.logger.Warn("failed to provision playlist", "collection", collection.Key, "error", err)
		} else {
			collection.RemoteID = id
		}
	}

	collections = append(collections, collection)
	if err := r.store.SaveCollections(collections); err != nil {
		return fmt.Errorf("failed to save collections: %w", err)
	}

	return r.writePlainln("Added collection %s (%s)", collection.Key, collection.Name)
}

// ScheduleShow prints the recurring schedule.
func (r *Runner) ScheduleShow(ctx context.Context, cmd *cli.Command) error {
	schedule, err := r.store.LoadSchedule()
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	return r.writeJSON(schedule, true)
}

// ScheduleAdd appends a recurring activity to the schedule.
func (r *Runner) ScheduleAdd(ctx context.Context, cmd *cli.Command) error {
	days := strings.Split(cmd.String("days"), ",")
	for i, d := range days {
		days[i] = strings.ToLower(strings.TrimSpace(d))
	}

	activity := models.Activity{
		Name:     cmd.String("name"),
		Playlist: cmd.String("playlist"),
		Days:     days,
		Windows: []models.TimeWindow{
			{Start: cmd.String("start"), End: cmd.String("end")},
		},
	}

	schedule, err := r.store.LoadSchedule()
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}

	schedule.Activities = append(schedule.Activities, activity)
	if err := r.store.SaveSchedule(schedule); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	return r.writePlainln("Added activity %s -> %s", activity.Name, activity.Playlist)
}

// ScheduleSetDefault sets the fallback playlist for low-confidence songs.
func (r *Runner) ScheduleSetDefault(ctx context.Context, cmd *cli.Command) error {
	key := cmd.String("playlist")

	collections, err := r.store.LoadCollections()
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}

	found := false
	for _, c := range collections {
		if c.Key == key {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: no collection with key %q", shared.ErrInvalidInput, key)
	}

	schedule, err := r.store.LoadSchedule()
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}

	schedule.DefaultPlaylist = key
	if err := r.store.SaveSchedule(schedule); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	return r.writePlainln("Default playlist set to %s", key)
}

// LogList prints activity log entries.
func (r *Runner) LogList(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.store.LoadActivityLog()
	if err != nil {
		return fmt.Errorf("failed to load activity log: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlainln("No activity log entries.")
	}

	for _, entry := range entries {
		note := ""
		if entry.Note != "" {
			note = " (" + entry.Note + ")"
		}
		if err := r.writePlainln("%s to %s -> %s%s", entry.Start, entry.End, entry.Playlist, note); err != nil {
			return err
		}
	}
	return nil
}

// LogAdd records a one-off activity override.
func (r *Runner) LogAdd(ctx context.Context, cmd *cli.Command) error {
	entry := models.ActivityLogEntry{
		Start:    cmd.String("start"),
		End:      cmd.String("end"),
		Playlist: cmd.String("playlist"),
		Note:     cmd.String("note"),
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	entry.ID = shared.GenerateID()

	entries, err := r.store.LoadActivityLog()
	if err != nil {
		return fmt.Errorf("failed to load activity log: %w", err)
	}

	entries = append(entries, entry)
	if err := r.store.SaveActivityLog(entries); err != nil {
		return fmt.Errorf("failed to save activity log: %w", err)
	}

	return r.writePlainln("Logged %s -> %s", entry.Start, entry.Playlist)
}

// Report prints the most recent sync report.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	report, err := r.store.LastReport()
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return r.writePlainln("No sync reports yet. Run: floe sync")
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}
	return r.printReport(report)
}

// Stats prints archive-wide aggregates.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	archive, closeDB, err := r.openArchive()
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	if archive == nil {
		return r.writePlainln("Archive not configured. Run: floe setup database")
	}
	defer closeDB()

	stats, err := archive.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	return r.writeJSON(stats, true)
}
