// Package logging provides leveled logging for the media indexer.
//
// The level is taken from the LOG_LEVEL environment variable (debug, info,
// warn, error) or forced to debug with DEBUG=1, and can be overridden at
// runtime with SetLevel. Output goes through the standard library logger.
package logging
