// Package log builds the slog loggers used by notionsync.
//
// SecureHandler wraps any slog.Handler and masks sensitive attributes:
//   - the Authorization and Proxy-Authorization headers
//   - keys such as token, secret, password
//   - integration secrets (secret_... and ntn_...), bearer and basic
//     credentials, and proxy URLs carrying a password, wherever they appear
//     as values
//
// Masking applies in verbose mode too, so a debug log can be shared.
//
// # Usage
//
//	logger, closer, err := log.New(os.Stderr, log.Options{Verbose: true, File: "sync.log"})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	slog.SetDefault(logger)
package log
