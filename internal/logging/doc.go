// Package logger provides leveled console logging for medkeys.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output is prefixed with a colored level tag.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info messages
//   - --debug: Shows all messages including debug details
//
// Warnings and errors are always written to stderr.
//
// # Log Methods
//
//	Logger.Infof()           // Shown with --verbose or --debug
//	Logger.Debugf()          // Shown only with --debug
//	Logger.Warnf()           // Always shown
//	Logger.Errorf()          // Always shown
//	Logger.ErrorfAndReturn() // Returns the message as an error
//
// # Usage
//
// Create a logger with the desired verbosity:
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Rotating %s key", purpose)
//
// The key manager receives a Logger through keys.WithLogger. Key material is
// never passed to any log method.
package logger
