package types

// Version is the canonical project version.
const Version = "0.3.0"

// FormatVersion is the decoded-event file format version written into
// every event frame. Readers reject frames carrying any other version.
const FormatVersion = "1"
