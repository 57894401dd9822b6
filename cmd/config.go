package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tonhe/netwatch/internal/config"
	"github.com/tonhe/netwatch/tui/styles"
)

const configUsage = "Usage: netwatch config <path|show|validate|theme NAME>"

func configCmd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, configUsage)
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "path":
		err = configPath()
	case "show":
		err = configShow()
	case "validate":
		err = configValidate()
	case "theme":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: netwatch config theme NAME")
			os.Exit(1)
		}
		err = configSetTheme(args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n%s\n", args[0], configUsage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("%s (not created, defaults in use)\n", path)
		return nil
	}
	fmt.Println(path)
	return nil
}

// configShow prints the effective configuration, defaults included.
func configShow() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

func configValidate() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if _, err := config.LoadConfig(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("%s: ok\n", path)
	return nil
}

func configSetTheme(name string) error {
	if _, ok := styles.Lookup(name); !ok {
		return fmt.Errorf("unknown theme %q (run 'netwatch themes' for the list)", name)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Theme = name
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("Default theme set to %q.\n", name)
	return nil
}

func themesCmd() {
	for _, name := range styles.Names() {
		marker := " "
		if name == styles.DefaultSlug {
			marker = "*"
		}
		fmt.Printf("%s %-16s %s\n", marker, name, styles.Themes[name].Name)
	}
}

func loadConfig() (*config.Config, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path)
}

// loadOrDefaultConfig is loadConfig for commands that can run on defaults.
func loadOrDefaultConfig() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func saveConfig(cfg *config.Config) error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("create config directories: %w", err)
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
