package models

// InitializeTestDb points the package at a fresh shared in-memory sqlite
// db. Meant to be called at the top of tests that touch the db.
func InitializeTestDb() {
	err := openDB("file::memory:?cache=shared&_pragma_key=test&_pragma_cipher_page_size=4096")
	if err != nil {
		logg.Panic(err)
	}

	// 'cache=shared' keeps the db alive across pooled connections, so
	// stale tables from a previous test in the same process must go.
	db.Migrator().DropTable(&Job{}, &JobStatus{}, &Contact{}, &User{})

	db.AutoMigrate(&JobStatus{}, &Job{}, &Contact{}, &User{})
	populateDBWithSeedData()
}
