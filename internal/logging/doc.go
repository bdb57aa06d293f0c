// Package logging provides structured logging for bridge peers.
//
// This package wraps Go's log/slog to provide JSON-formatted logs. Every
// peer context gets a child logger tagged with its side, and the protocol
// adds the channel frequency, so a single log file interleaving both peers
// can be filtered per side and per channel afterwards.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR), changeable at runtime
//   - Context propagation (peer, frequency, component)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer and level.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	peerLogger := logger.WithPeer("inject").WithFrequency("settings")
//	peerLogger.Info("mailbox drained", "messages", 3)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"mailbox drained","peer":"inject","frequency":"settings","messages":3}
//
// # Log Rotation
//
//	logger, err := logging.NewLoggerWithRotation("/path/to/logs", "INFO", logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//
// Rotated files are named bridge.log.1, bridge.log.2, ... where .1 is the most
// recent backup; with compression they become bridge.log.1.gz and so on.
package logging
