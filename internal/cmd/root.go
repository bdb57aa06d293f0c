package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Ordered message channels between two isolated peers",
	Long: `Bridge connects two peers that share nothing but a key/value ledger.
Each peer owns a mailbox per channel, guarded by a lock value in the
ledger, and messages flow in order in both directions.

The commands here run both peers in-process for demos and experiments.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/bridge/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level")
	bindFlags()
}

// bindFlags ties the persistent flags to their viper keys.
func bindFlags() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	// BRIDGE_LOGGING_LEVEL for logging.level, and so on
	config.BindEnv()

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
