package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/exedev/chronicle/internal/agent"
	"github.com/exedev/chronicle/internal/config"
	"github.com/exedev/chronicle/internal/gather"
	"github.com/exedev/chronicle/internal/gitops"
	"github.com/exedev/chronicle/internal/llm"
	"github.com/exedev/chronicle/internal/output"
	"github.com/exedev/chronicle/internal/store"
)

// loadConfigFromCtx loads the persisted config and applies flag overrides.
func loadConfigFromCtx(cmd *cli.Command) (*config.Config, string, error) {
	configPath := cmd.String("config")
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	if provider := cmd.String("provider"); provider != "" {
		cfg.Provider = provider
	}
	if model := cmd.String("model"); model != "" {
		cfg.Model = model
	}
	if maxTurns := cmd.Int("max-turns"); maxTurns > 0 {
		cfg.MaxTurns = int(maxTurns)
	}

	return cfg, configPath, nil
}

func discoverProvider(cfg *config.Config) (llm.Provider, error) {
	return llm.Discover(llm.ProviderConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Command:  cfg.Command,
	})
}

// storeDir is the per-project archive location.
func storeDir(projectDir string) string {
	return filepath.Join(projectDir, ".chronicle")
}

func cmdAnnotate(ctx context.Context, cmd *cli.Command) error {
	quiet := cmd.Bool("quiet")
	projectDir := cmd.String("project")
	printer := output.NewPrinter(quiet)

	cfg, _, err := loadConfigFromCtx(cmd)
	if err != nil {
		return err
	}

	git, err := gitops.Open(projectDir)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	ref := "HEAD"
	if args := cmd.Args().Slice(); len(args) > 0 {
		ref = args[0]
	}
	sha, err := git.ResolveRef(ref)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", ref, err)
	}

	provider, err := discoverProvider(cfg)
	if err != nil {
		return err
	}

	gctx, err := gather.BuildContext(git, sha)
	if err != nil {
		return fmt.Errorf("gather commit context: %w", err)
	}
	if len(gctx.Diffs) == 0 {
		return fmt.Errorf("commit %s has no file changes to annotate", shortSHA(sha))
	}

	printer.Info("Annotating %s via %s (%s)", shortSHA(sha), provider.Name(), provider.Model())

	opts := agent.Options{MaxTurns: cfg.MaxTurns}
	if !quiet {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	collected, summary, err := agent.Run(ctx, provider, git, gctx, opts)
	if err != nil {
		return err
	}

	st, err := store.Open(storeDir(projectDir))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer st.Close()

	run := &store.Run{
		CommitSHA:    sha,
		Provider:     provider.Name(),
		Model:        provider.Model(),
		Summary:      summary,
		Regions:      collected.Regions,
		CrossCutting: collected.CrossCutting,
	}
	if err := st.SaveRun(run); err != nil {
		return fmt.Errorf("archive run: %w", err)
	}

	printer.Records(summary, collected.Regions, collected.CrossCutting)
	printer.Success("Recorded %d annotation(s) for %s", collected.Count(), shortSHA(sha))
	return nil
}

func cmdShow(ctx context.Context, cmd *cli.Command) error {
	quiet := cmd.Bool("quiet")
	projectDir := cmd.String("project")
	printer := output.NewPrinter(quiet)

	st, err := store.Open(storeDir(projectDir))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer st.Close()

	if cmd.Bool("list") {
		runs, err := st.ListRuns(int(cmd.Int("limit")))
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			printer.Info("No archived runs")
			return nil
		}
		for _, run := range runs {
			fmt.Printf("%s  %s  %s/%s  %d region(s), %d concern(s)\n",
				run.CreatedAt, shortSHA(run.CommitSHA), run.Provider, run.Model,
				len(run.Regions), len(run.CrossCutting))
		}
		return nil
	}

	git, err := gitops.Open(projectDir)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	ref := "HEAD"
	if args := cmd.Args().Slice(); len(args) > 0 {
		ref = args[0]
	}
	sha, err := git.ResolveRef(ref)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", ref, err)
	}

	run, err := st.LatestRun(sha)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no archived run for %s (try 'git-chronicle annotate %s')", shortSHA(sha), ref)
	}

	printer.Info("Run %s (%s, %s/%s)", run.ID, run.CreatedAt, run.Provider, run.Model)
	printer.Records(run.Summary, run.Regions, run.CrossCutting)
	return nil
}

func cmdDoctor(ctx context.Context, cmd *cli.Command) error {
	projectDir := cmd.String("project")
	printer := output.NewPrinter(false)
	healthy := true

	cfg, configPath, err := loadConfigFromCtx(cmd)
	if err != nil {
		printer.Error("Config: %v", err)
		return fmt.Errorf("doctor found problems")
	}
	printer.Success("Config: %s", configPath)

	git, err := gitops.Open(projectDir)
	if err != nil {
		printer.Error("Repository: %v", err)
		healthy = false
	} else if sha, err := git.ResolveRef("HEAD"); err != nil {
		printer.Error("Repository: cannot resolve HEAD: %v", err)
		healthy = false
	} else {
		printer.Success("Repository: HEAD at %s", shortSHA(sha))
	}

	provider, err := discoverProvider(cfg)
	if err != nil {
		printer.Error("Provider: %v", err)
		healthy = false
	} else {
		printer.Success("Provider: %s (%s)", provider.Name(), provider.Model())
		status, err := provider.CheckAuth(ctx)
		switch {
		case err != nil:
			printer.Error("Auth check: %v", err)
			healthy = false
		case !status.Valid:
			printer.Error("Auth check: %s", status.Reason)
			healthy = false
		default:
			printer.Success("Auth check: credentials accepted")
		}
	}

	if !healthy {
		return fmt.Errorf("doctor found problems")
	}
	printer.Success("All checks passed")
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
