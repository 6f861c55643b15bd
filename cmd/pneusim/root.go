package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// Global flags
	host    string
	port    int
	verbose bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pneusim",
	Short: "Modbus TCP slave emulating a pneumatic cylinder",
	Long: `pneusim is a test double for control-system validation. It exposes
valve coils and position-sensor discrete inputs over Modbus TCP and
derives the sensors from a cycle-counted physics model.

Address map (per --address-base offset):
  coil 0  valve_extend     coil 1  valve_retract
  di   0  sensor_home      di   1  sensor_end

Examples:
  # Run the slave with a 100ms cycle and threshold 3
  pneusim serve --port 5020 --tick 100ms --threshold 3

  # Watch the sensors of a running slave
  pneusim poll -H 127.0.0.1 -p 5020 -i 250ms`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.pneusim.yaml)")
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "0.0.0.0", "bind or target host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 502, "Modbus TCP port")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pollCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".pneusim")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PNEUSIM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func getAddress() string {
	return fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
}
