package cli

import (
	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the profile",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a profile with default values",
	Long: `Write a profile with default values to --config or
~/.config/nasbridge/config.yaml. An existing profile is kept unless --force
is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective profile",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing profile")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if !configInitForce {
		existing, err := deps.ConfigLoader.Load(configPath)
		if err == nil && !isDefault(existing) {
			return nberrors.Validation("profile already exists, use --force to overwrite")
		}
	}

	cfg := config.New()
	if err := deps.ConfigLoader.Save(cfg, configPath); err != nil {
		return nberrors.Wrap(nberrors.ErrCodeConfig, "failed to save profile", err)
	}
	target := configPath
	if target == "" {
		target, _ = config.ConfigPath()
	}
	return outputResult(map[string]interface{}{"success": true, "path": target}, "Profile written to %s", target)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadProfile()
	if err != nil {
		return err
	}
	if jsonOutput {
		return output.JSON(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	output.Print("%s", data)
	return nil
}

// isDefault reports whether cfg is indistinguishable from config.New()
func isDefault(cfg *config.Config) bool {
	a, errA := yaml.Marshal(cfg)
	b, errB := yaml.Marshal(config.New())
	return errA == nil && errB == nil && string(a) == string(b)
}
