// Package logging provides structured logging for the mod director.
//
// Logs are JSON lines written through log/slog so that a run can be
// inspected after the fact with [AggregateLogs] and [FilterLogs], which back
// the `moddirector logs` command.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("activation started", "mods", 12)
//
// # Director Logging
//
// The director and its collaborators log through [Logger.Log] and
// [Logger.LogThrowable], which take an error severity plus a component and
// subsystem tag:
//
//	logger.Log(errors.SeverityInfo, "ModDirector", "CORE", "Mod director loaded!")
//	logger.LogThrowable(errors.SeverityError, "ModDirector", "CORE", err, "Unhandled error in worker")
//
// Child loggers created with [Logger.WithComponent], [Logger.WithMod] or
// [Logger.With] share the underlying file.
//
// # Log Rotation
//
// [NewLoggerWithRotation] rotates director.log by size. Backups are named
// director.log.1 (newest) to director.log.N and are gzipped when
// RotationConfig.Compress is set. [AggregateLogs] reads backups too.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on entries.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package logging
