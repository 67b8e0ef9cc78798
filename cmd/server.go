/*
Copyright © 2023 Artur Baur

*/
package cmd

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/abaur/rolodex/dev/config"
	"github.com/abaur/rolodex/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a rolodex server",
	Long:  `The rolodex server exposes the contacts & signup/verification REST API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(serverConfig(), isDevEnv)
	},
}

var serverConfigFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverConfigFile, "config", "", "config file for the server")
}

func serverConfig() *viper.Viper {
	v := viper.New()

	if isDevEnv {
		serverConfigFile = devConfigFilePath()
	}

	if serverConfigFile == "" {
		cobra.CheckErr(formattedError("must provide --config (or run with --dev)"))
	}

	v.SetConfigFile(serverConfigFile)
	v.AutomaticEnv() // read in environment variables that match

	if err := v.ReadInConfig(); err != nil {
		log.Panicf("error reading server config file: %v", err)
	}

	return v
}

// devConfigFilePath returns dev/config/server.yml, writing the default
// dev config there first when the file doesn't exist yet.
func devConfigFilePath() string {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Panic(err)
	}

	configFilePath := filepath.Join(workingDir, "dev", "config", "server.yml")
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		err = ioutil.WriteFile(configFilePath, []byte(config.SERVER_YML), 0600)
		cobra.CheckErr(err)
	}

	return configFilePath
}
