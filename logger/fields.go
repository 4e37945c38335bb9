package logger

import "go.uber.org/zap"

// Standard field names for consistent structured logging across loom.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldProject = "project"
	FieldBuildID = "build_id"

	// Documents
	FieldOperation = "operation"
	FieldFragment  = "fragment"
	FieldDocuments = "documents"

	// Artifacts
	FieldArtifacts = "artifacts"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldStage      = "stage"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Files and paths
	FieldFile = "file"
	FieldLine = "line"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Writer struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewWriter() *Writer {
//	    return &Writer{
//	        logger: logger.ComponentLogger("build.writer"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	projectLogger := logger.ChildLogger(baseLogger, logger.FieldProject, name)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
