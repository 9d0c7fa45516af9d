package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dxblostfound/lostfound/internal/utils"
	"github.com/dxblostfound/lostfound/pkg/backend"
	"github.com/dxblostfound/lostfound/pkg/matching"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lostfound",
	Short: "Report lost and found items and review their candidate matches.",
	Long: `lostfound submits lost and found item reports to a matching backend and shows
the candidates it returns, classified as possible or high matches.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelString, _ := cmd.Flags().GetString("loglevel")
		return utils.SetLogLevel(levelString)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lostfound.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("backend", "", "Backend base URL (overrides backend.url)")

	viper.BindPFlag("backend.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("backend.url", rootCmd.PersistentFlags().Lookup("backend"))
}

func setDefaults() {
	viper.SetDefault("backend.url", backend.DefaultBaseURL)
	viper.SetDefault("backend.timeout", int(backend.DefaultTimeout.Seconds()))
	viper.SetDefault("backend.retries", 0)
	viper.SetDefault("backend.proxy", "")
	viper.SetDefault("matching.floor.dashboard", matching.DefaultFloor)
	viper.SetDefault("matching.floor.lost", matching.DefaultFloor)
	viper.SetDefault("matching.floor.found", matching.DefaultFloor)
	viper.SetDefault("matching.exact", 0)
	viper.SetDefault("serve.listen", "127.0.0.1:8000")
	viper.SetDefault("serve.dbpath", "lostfound-dev.sqlite")
	viper.SetDefault("serve.username", "")
	viper.SetDefault("serve.password", "")
	viper.SetDefault("serve.topk", 5)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".lostfound")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LOSTFOUND")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".lostfound.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Debugf("Could not create config file: %v", err)
			}
		} else {
			utils.Log.Warnf("Could not read config file: %v", err)
		}
	}
}
