package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	configFlagName = "config"
	envPrefix      = "FPEER"
	configDirName  = ".fleetpeer"
	systemConfDir  = "/etc/fleetpeer"
)

var cfgFile string

// addConfigFlag registers -c/--config on fs.
func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile,
		fmt.Sprintf("Read configuration from the specified file. Without it %s.yaml is searched in ., $HOME/%s and %s.",
			basename, configDirName, systemConfDir))
}

// loadConfig reads .env, the config file and FPEER_* variables into v.
// A missing config file is not an error.
func loadConfig(v *viper.Viper, basename string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, configDirName))
		}
		v.AddConfigPath(systemConfDir)
		v.SetConfigName(basename)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read configuration file(%s): %w", cfgFile, err)
		}
	}
	return nil
}

// watchConfig logs edits of the config file in use. Options are bound at
// startup, so an edit takes effect on the next restart.
func watchConfig(v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Warn("Configuration file changed, restart to apply", "file", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()
}
