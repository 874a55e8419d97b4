package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"librarian/internal/config"
	"librarian/internal/fileutil"
	"librarian/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check the configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(ctx), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var pathFlag string
	var overwrite bool
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample configuration",
		Long: "Init writes the sample configuration to --path, or to the file named by --config, " +
			"or to ~/.config/librarian/config.toml. The written file is loaded back to prove it is valid.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if toStdout {
				_, err := io.WriteString(out, config.SampleConfig())
				return err
			}

			target, err := initTarget(pathFlag, ctx.configFlag)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			if fileutil.Exists(target) && !overwrite {
				return services.Wrap(services.ErrValidation, "config", "init",
					fmt.Sprintf("%s already exists; pass --overwrite to replace it", target), nil)
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("reload %s: %w", target, err)
			}

			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			printSettings(out, cfg)
			fmt.Fprintf(out, "Preview the naming rules with: librarian --config %s plan <root>\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the sample instead of writing it")
	return cmd
}

// initTarget picks where init writes: --path, then the root --config flag,
// then the default location.
func initTarget(pathFlag string, configFlag *string) (string, error) {
	candidate := strings.TrimSpace(pathFlag)
	if candidate == "" && configFlag != nil {
		candidate = strings.TrimSpace(*configFlag)
	}
	if candidate == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(candidate)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			printSettings(out, cfg)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func printSettings(out io.Writer, cfg *config.Config) {
	rows := [][]string{
		{"State directory", cfg.Paths.StateDir},
		{"Log directory", cfg.Paths.LogDir},
		{"Conversion", yesNo(cfg.Convert.Enabled)},
		{"Subtitle merging", yesNo(cfg.Merge.Enabled)},
		{"Preferred languages", strings.Join(cfg.Merge.Languages, ", ")},
		{"Tag writing", yesNo(cfg.Queue.WriteTags)},
	}
	fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows, nil))
}
