package server

import (
	"errors"
	"fmt"

	"github.com/abaur/rolodex/server/gstorage"
	"github.com/abaur/rolodex/server/models"
	"github.com/abaur/rolodex/server/work"
	"github.com/abaur/rolodex/shared"
	"github.com/abaur/rolodex/utils"
)

const (
	VERIFICATION_EMAIL_HANDLER = "send_verification_email"
	SQLITE_BACKUP_HANDLER      = "backup_sqlite_db"

	verificationEmailSubject = "Email verification"
)

func registerJobHandlers(wpa *work.WorkerPoolAdapter, serverConfig *shared.ServerConfig, rootDir string) {
	wpa.Register(VERIFICATION_EMAIL_HANDLER, sendVerificationEmail)
	wpa.Register(SQLITE_BACKUP_HANDLER, backupSqliteDb(serverConfig, rootDir))
}

func enqueuePeriodicJobs(wpa *work.WorkerPoolAdapter, serverConfig *shared.ServerConfig) {
	if !sqliteBackupEnabled(serverConfig) {
		return
	}

	wpa.PeriodicallyPerform(serverConfig.Google.Storage.SqliteBackupSchedule, work.JobParams{
		Name:    SQLITE_BACKUP_HANDLER,
		Handler: SQLITE_BACKUP_HANDLER,
		Args:    map[string]interface{}{},
	})
}

// enqueueVerificationEmail puts a delivery job on the queue. Errors are
// logged, never surfaced - email delivery must not fail the request
// that triggered it.
func enqueueVerificationEmail(email, token string) {
	err := workerPool.Perform(work.JobParams{
		Name:    fmt.Sprintf("%v-%v", VERIFICATION_EMAIL_HANDLER, email),
		Handler: VERIFICATION_EMAIL_HANDLER,
		Args:    map[string]interface{}{"email": email, "token": token},
	})
	if err != nil {
		logg.Error(err)
	}
}

func sendVerificationEmail(args map[string]interface{}) error {
	email, ok := args["email"].(string)
	if !ok {
		return errors.New("sendVerificationEmail: missing 'email' arg")
	}

	token, ok := args["token"].(string)
	if !ok {
		return errors.New("sendVerificationEmail: missing 'token' arg")
	}

	link := mailClient.VerificationLink(token)
	html := fmt.Sprintf(
		"<p>Click the link below to verify your email:</p>\n<a href=%q>%v</a>",
		link, link,
	)

	return mailClient.SendEmail(email, verificationEmailSubject, html)
}

func backupSqliteDb(serverConfig *shared.ServerConfig, rootDir string) work.Handler {
	return func(map[string]interface{}) error {
		gs, err := gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
		if err != nil {
			return err
		}

		dbFilePath, err := models.DbFilePath(rootDir)
		if err != nil {
			return err
		}

		storageConfig := serverConfig.Google.Storage
		return gs.UploadFile(storageConfig.Bucket, backupObjectName(storageConfig), dbFilePath)
	}
}

// restoreSqliteDb pulls the last uploaded backup on boot when no local
// db file exists yet. A missing backup object is not an error - it just
// means this deployment has never run before.
func restoreSqliteDb(serverConfig *shared.ServerConfig, rootDir string) error {
	dbFilePath, err := models.DbFilePath(rootDir)
	if err != nil {
		return err
	}

	if utils.FileExist(dbFilePath) {
		return nil
	}

	gs, err := gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
	if err != nil {
		return err
	}

	storageConfig := serverConfig.Google.Storage
	err = gs.DownloadFile(storageConfig.Bucket, backupObjectName(storageConfig), dbFilePath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		return nil
	}

	return err
}

func backupObjectName(storageConfig shared.StorageConfig) string {
	return fmt.Sprintf("%v/%v", storageConfig.Prefix, models.DB_NAME)
}
