package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/abaur/rolodex/server/mailer"
	"github.com/abaur/rolodex/server/models"
	"github.com/abaur/rolodex/server/work"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

// Start wires up the db, the notification client & the worker pool and
// serves the API until SIGINT/SIGTERM.
func Start(config *viper.Viper, devMode bool) {
	serverConfig := parseServerConfig(config)
	rootDir := configDirectory(devMode)

	if sqliteBackupEnabled(serverConfig) {
		fatalOnError(restoreSqliteDb(serverConfig, rootDir))
	}
	fatalOnError(models.AutoMigrate(serverConfig.Sqlite.PassPhrase, rootDir))

	mailClient = mailer.NewClient(serverConfig.Sendgrid, serverConfig.Rolodex.AppURL, false)
	workerPool = work.NewWorkerAdapter(serverConfig.Rolodex.Cron.TimeZone)

	registerJobHandlers(workerPool, serverConfig, rootDir)
	enqueuePeriodicJobs(workerPool, serverConfig)
	workerPool.Start()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.Rolodex.Listener.Port),
		Handler: createRouter(),
	}
	go serve(server)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cleanup(workerPool, server, serverConfig, rootDir)
}

func createRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(jsonContentTypeMiddleware, loggingMiddleware)

	router.HandleFunc("/contacts", listContacts).Methods("GET")
	router.HandleFunc("/contacts", createContact).Methods("POST")
	router.HandleFunc("/contacts/{id}", findContact).Methods("GET")
	router.HandleFunc("/contacts/{id}", replaceContact).Methods("PUT")
	router.HandleFunc("/contacts/{id}", deleteContact).Methods("DELETE")
	router.HandleFunc("/contacts/{id}/favorite", setContactFavorite).Methods("PATCH")

	router.HandleFunc("/signup", signup).Methods("POST")
	router.HandleFunc("/resend-verification", resendVerification).Methods("POST")
	router.HandleFunc("/verify/{token}", verifyEmail).Methods("GET")

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/jobs", listJobs).Methods("GET")

	return router
}
