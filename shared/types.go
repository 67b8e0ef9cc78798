package shared

type ServerConfig struct {
	Rolodex  RolodexConfig  `mapstructure:"rolodex" validate:"required"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite" validate:"required"`
	Sendgrid SendgridConfig `mapstructure:"sendgrid" validate:"required"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type RolodexConfig struct {
	// AppURL is the public base URL of this service. Verification links
	// embedded in outgoing emails are built from it.
	AppURL   string         `mapstructure:"appUrl" validate:"required,url"`
	Cron     CronConfig     `mapstructure:"cron" validate:"required"`
	Listener ListenerConfig `mapstructure:"listener" validate:"required"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type SendgridConfig struct {
	ApiKey string `mapstructure:"apiKey" validate:"required"`
	Sender string `mapstructure:"sender" validate:"required,email"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync"`
}
