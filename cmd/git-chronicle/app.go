package main

import (
	"github.com/urfave/cli/v3"
)

// version is set via ldflags at build time.
// e.g. -ldflags "-X main.version=1.2.3"
var version = "dev"

// newApp creates the CLI application with all flags and commands.
func newApp() *cli.Command {
	return &cli.Command{
		Name:        "git-chronicle",
		Usage:       "LLM-assisted commit annotation",
		Version:     version,
		UsageText:   "git-chronicle [global options] command [command options] [arguments...]",
		Description: "Chronicle analyzes a commit with an LLM agent and records structured intent annotations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: user config dir)",
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project directory",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Force provider backend: anthropic, claude-code",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model override for the selected provider",
			},
			&cli.IntFlag{
				Name:  "max-turns",
				Usage: "Max agent turns before aborting",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress all non-error output",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "annotate",
				Usage:     "Annotate a commit (default: HEAD)",
				ArgsUsage: "[commit-ish]",
				Action:    cmdAnnotate,
			},
			{
				Name:      "show",
				Usage:     "Show archived annotations for a commit",
				ArgsUsage: "[commit-ish]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "list",
						Aliases: []string{"l"},
						Usage:   "List recent runs instead",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Max runs to list",
						Value: 20,
					},
				},
				Action: cmdShow,
			},
			{
				Name:   "doctor",
				Usage:  "Check provider and repository health",
				Action: cmdDoctor,
			},
			{
				Name:   "setup",
				Usage:  "Configure the LLM provider interactively",
				Action: cmdSetup,
			},
		},
		DefaultCommand: "annotate",
	}
}
