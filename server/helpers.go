package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abaur/rolodex/server/work"
	"github.com/abaur/rolodex/shared"
	"github.com/abaur/rolodex/utils"
	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

// ---------------------------------------------------------------------------------//
// Handler helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payload interface{}, statusCode int) {
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payload)
}

// writeErrMsg writes '{"message": msg}'. Collaborator failures are
// logged in full but never leak past the generic message.
func writeErrMsg(rw http.ResponseWriter, msg string, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(msg)
	} else {
		logg.Info(msg)
	}

	writeResponse(rw, map[string]interface{}{"message": msg}, statusCode)
}

// firstValidationError reports the first violated field, mirroring the
// "first violation wins" contract of the payload schemas.
func firstValidationError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request body"
	}

	field := strings.ToLower(verrs[0].Field())
	switch verrs[0].Tag() {
	case "required":
		return fmt.Sprintf("missing required field %v", field)
	case "email":
		return fmt.Sprintf("%v must be a valid email address", field)
	default:
		return fmt.Sprintf("invalid value for field %v", field)
	}
}

// ---------------------------------------------------------------------------------//
// Server helper functions
// --------------------------------------------------------------------------------//

func parseServerConfig(config *viper.Viper) *shared.ServerConfig {
	serverConfig := shared.ServerConfig{}

	fatalOnError(config.Unmarshal(&serverConfig))
	fatalOnError(validate.Struct(&serverConfig))

	return &serverConfig
}

func sqliteBackupEnabled(config *shared.ServerConfig) bool {
	enabled, ok := config.Google.Storage.EnableSqliteBackupAndSync.(bool)
	return ok && enabled
}

func serve(server *http.Server) {
	logg.Infof("Rolodex server is listening on %v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, serverConfig *shared.ServerConfig, rootDir string) {
	// Stop email delivery & other background jobs first
	workerPool.Stop()

	if sqliteBackupEnabled(serverConfig) {
		if err := backupSqliteDb(serverConfig, rootDir)(nil); err != nil {
			logg.Error(err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Rolodex server shutdown failed: %+s", err)
	}

	logg.Infof("Rolodex server stopped properly")
}

// configDirectory retrieves the directory rolodex keeps its db & config
// in, or logs an error message and exits if it's unable to.
func configDirectory(devMode bool) string {
	configFolderName := "rolodex"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
