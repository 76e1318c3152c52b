// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles first-run provisioning
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration, credentials, and the archive database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a config file from the bundled template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:  "youtube",
				Usage: "Generate the proxy auth file from a browser cURL command",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Auth file output path",
					},
				},
				Action: r.SetupYouTube,
			},
			{
				Name:   "database",
				Usage:  "Initialize the archive database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// syncCommand runs one end-to-end sync
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch history, categorize new songs, and update playlists",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of history entries to process",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the run report as JSON",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress progress output",
			},
		},
		Action: r.Sync,
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API for schedulers and local tooling",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// collectionsCommand manages collections
func collectionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "collections",
		Aliases: []string{"col"},
		Usage:   "Manage playlist collections",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List configured collections",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CollectionsList,
			},
			{
				Name:  "add",
				Usage: "Add a collection and provision its playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Display name for the collection",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Description used in categorization prompts",
					},
				},
				Action: r.CollectionsAdd,
			},
		},
	}
}

// scheduleCommand manages the recurring schedule
func scheduleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage the recurring listening schedule",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the current schedule",
				Action: r.ScheduleShow,
			},
			{
				Name:  "add",
				Usage: "Add a recurring activity",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Activity name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Target collection key",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "days",
						Usage:    "Comma-separated weekdays (mon,tue,...)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "start",
						Usage:    "Window start (HH:MM)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "end",
						Usage:    "Window end (HH:MM)",
						Required: true,
					},
				},
				Action: r.ScheduleAdd,
			},
			{
				Name:  "default",
				Usage: "Set the default playlist for low-confidence songs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Collection key",
						Required: true,
					},
				},
				Action: r.ScheduleSetDefault,
			},
		},
	}
}

// logCommand manages one-off activity log entries
func logCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Manage one-off activity log entries",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List activity log entries",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LogList,
			},
			{
				Name:  "add",
				Usage: "Record a one-off activity override",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "start",
						Usage:    "Start timestamp (2006-01-02T15:04)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "end",
						Usage:    "End timestamp (2006-01-02T15:04)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Target collection key",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Optional note",
					},
				},
				Action: r.LogAdd,
			},
		},
	}
}

// reportCommand shows the latest sync report
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Show the most recent sync report",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Report,
	}
}

// statsCommand aggregates the archive database
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show archive-wide classification stats",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Stats,
	}
}
