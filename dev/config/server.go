package config

const SERVER_YML = `
rolodex:
  appUrl: "http://localhost:3000"
  cron:
    timeZone: "America/Toronto"
  listener:
    port: 3000

sqlite:
  passPhrase: passphrase

sendgrid:
  apiKey: "SG.replace-me"
  sender: "no-reply@example.com"

google:
  storage:
    bucket: "rolodex"
    prefix: "rolodex-dev"
    sqliteBackupSchedule: "*/30 * * * *"
    enableSqliteBackupAndSync: false
  applicationCredentials:
`
