package version

// Version is the current release of the rolodex binary.
const Version = "0.2.0"
