package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wamid/kommobot/internal/config"
	"github.com/wamid/kommobot/internal/doctor"
)

var (
	checkJSON  bool
	lockDryRun bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and lock configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the configuration and report problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := loadConfig()
		if err != nil {
			if checkJSON {
				res := &doctor.Result{Errors: []doctor.Issue{{Category: "load", Message: err.Error()}}}
				if data, jerr := doctor.FormatJSON(res); jerr == nil {
					fmt.Fprintln(out, data)
				}
			}
			return err
		}

		res := doctor.New(cfg).Validate()
		if checkJSON {
			data, err := doctor.FormatJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, data)
		} else {
			fmt.Fprint(out, doctor.FormatHuman(res))
		}

		if !res.Valid {
			return fmt.Errorf("configuration has %d error(s)", len(res.Errors))
		}
		return nil
	},
}

var configLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Write .checksums for config.yaml and .env",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := configDir()
		if err != nil {
			return err
		}

		report, err := config.GenerateChecksums(dir, lockDryRun)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, f := range report.Files {
			if !f.Exists {
				fmt.Fprintf(out, "  skip   %s (not present)\n", f.Filename)
				continue
			}
			fmt.Fprintf(out, "  %s  %s\n", f.Hash[:16], f.Filename)
		}
		if report.Written {
			fmt.Fprintf(out, "Wrote %s\n", report.ChecksumPath)
		} else {
			fmt.Fprintf(out, "Dry run: %s not written\n", report.ChecksumPath)
		}
		return nil
	},
}

func init() {
	configCheckCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the report as JSON")
	configLockCmd.Flags().BoolVar(&lockDryRun, "dry-run", false, "Show hashes without writing .checksums")
	configCmd.AddCommand(configCheckCmd, configLockCmd)
	rootCmd.AddCommand(configCmd)
}

// configDir returns the directory holding the config file.
func configDir() (string, error) {
	path := resolveConfigPath()
	if path == "" {
		return "", fmt.Errorf("no config file found; pass --config or set %s", config.ConfigEnvVar)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("config path %s: %w", abs, err)
	}
	if info.IsDir() {
		return abs, nil
	}
	return filepath.Dir(abs), nil
}
