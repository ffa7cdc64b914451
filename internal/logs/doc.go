// Package logs reads the JSON run log written by the logging package.
//
// Last returns the trailing lines of the log with bounded memory, Follow
// streams lines appended after an offset until its context ends, and Filter
// narrows either to one run, signature, or event type by decoding each record.
package logs
