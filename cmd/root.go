// Copyright 2024 Google LLC
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

	"github.com/googlecloudplatform/libfusego/cfg"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

// mountFn runs after flag and config-file parsing with the final config and
// the mount point from the command line. Swapped out in tests.
type mountFn func(newConfig *cfg.Config, mountPoint string) error

// NewRootCmd builds the hellofs command. Flag values, the optional YAML
// config file and built-in defaults are merged by Viper in that order of
// precedence before mount runs.
func NewRootCmd(mount mountFn) (*cobra.Command, error) {
	var configFile string
	rootCmd := &cobra.Command{
		Use:   "hellofs [flags] mountpoint",
		Short: "Mount a file system serving a single in-memory file",
		Long: `hellofs mounts a read-only FUSE file system that exposes one file at its
root. It exists as a working end-to-end exercise of the libfusego binding.`,
		Version:      version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "The path to the config file where all hellofs related config needs to be specified.")
	v, err := cfg.BindFlags(rootCmd.PersistentFlags())
	if err != nil {
		return nil, fmt.Errorf("error while binding flags: %w", err)
	}

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			v.SetConfigFile(configFile)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("error while reading the config file: %w", err)
			}
		}

		var newConfig cfg.Config
		err := v.Unmarshal(&newConfig, viper.DecodeHook(cfg.DecodeHook()), func(decoderConfig *mapstructure.DecoderConfig) {
			decoderConfig.TagName = "yaml"
		})
		if err != nil {
			return fmt.Errorf("error while unmarshaling the config: %w", err)
		}
		if err := cfg.ValidateConfig(&newConfig); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		return mount(&newConfig, args[0])
	}

	return rootCmd, nil
}

func Execute() {
	rootCmd, err := NewRootCmd(Mount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while creating the root command: %v\n", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
