// Copyright 2026 Portside Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/portside/shipper/internal/config"
	"github.com/portside/shipper/internal/store"
)

var cfgFile string
var Version = "0.1.0" // Default version

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shipper",
	Short: "Shipper Deployment Agent",
	Long: `Shipper pushes files and folders to deploy receivers under Ed25519
authentication, on demand, on a cron schedule, or when watched folders change.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches exe dir, data dir, $HOME)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Check local folder (same as the executable) - best for dev
		exePath, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(exePath))
		}

		// 2. The agent's data directory
		viper.AddConfigPath(store.DataDir())

		// 3. Fallback to home directory
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		// Lock in the file we found so viper.WriteConfig() updates the right one
		viper.SetConfigFile(viper.ConfigFileUsed())
	}
}

// loadSettings unmarshals the viper config into typed settings.
func loadSettings() config.Settings {
	var s config.Settings
	if err := viper.Unmarshal(&s); err != nil {
		fmt.Printf("Warning: invalid config: %v\n", err)
	}
	s.ApplyDefaults()
	return s
}

// openStore opens the agent database honoring the configured path.
func openStore() (*store.DB, error) {
	return store.Open(loadSettings().DBPath)
}
