// Package logging configures the process-wide slog logger.
//
// Commands log human-readable text to stderr. With --debug, JSON logs are also
// written to a size-rotated file under ~/.hybridsearch/logs/. The serve
// command owns stdout for the MCP protocol and logs to the file only.
package logging
