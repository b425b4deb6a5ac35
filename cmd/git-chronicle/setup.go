package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/exedev/chronicle/internal/config"
	"github.com/exedev/chronicle/internal/output"
)

func cmdSetup(ctx context.Context, cmd *cli.Command) error {
	printer := output.NewPrinter(false)
	reader := bufio.NewReader(os.Stdin)

	cfg, configPath, err := loadConfigFromCtx(cmd)
	if err != nil {
		return err
	}

	fmt.Println("Select a provider:")
	fmt.Println("  1) anthropic    (Anthropic API, requires an API key)")
	fmt.Println("  2) claude-code  (local claude CLI, no key needed)")
	fmt.Print("Choice [1]: ")

	choice, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read choice: %w", err)
	}

	switch strings.TrimSpace(choice) {
	case "", "1":
		cfg.Provider = "anthropic"
		key, err := readAPIKey(reader)
		if err != nil {
			return err
		}
		if key != "" {
			cfg.APIKey = key
		}
	case "2":
		cfg.Provider = "claude-code"
	default:
		return fmt.Errorf("unknown choice %q", strings.TrimSpace(choice))
	}

	fmt.Print("Model (empty for provider default): ")
	model, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	cfg.Model = strings.TrimSpace(model)

	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	printer.Success("Config saved to %s", configPath)

	provider, err := discoverProvider(cfg)
	if err != nil {
		return err
	}
	status, err := provider.CheckAuth(ctx)
	if err != nil {
		printer.Warn("Auth check failed: %v", err)
		return nil
	}
	if !status.Valid {
		printer.Warn("Auth check: %s", status.Reason)
		return nil
	}
	printer.Success("Provider %s is ready", provider.Name())
	return nil
}

// readAPIKey reads the key without echo when stdin is a terminal. An empty
// answer keeps any previously saved key.
func readAPIKey(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Anthropic API key (input hidden, empty to keep current): ")
		key, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(key)), nil
	}

	fmt.Print("Anthropic API key (empty to keep current): ")
	key, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(key), nil
}
