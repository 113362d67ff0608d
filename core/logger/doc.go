// Package logger is a standardized event logging framework for the shell.
//
// Events are written as newline delimited JSON objects, one LogEntry per
// line, so a session can be audited or summarized after the fact.
package logger
