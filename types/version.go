package types

// Version is the canonical project version, shared by the CLI and the
// JSON fetch report.
const Version = "0.2.0"
