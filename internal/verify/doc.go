// Package verify checks converted artifacts with the configured validator
// and optionally removes the directories that hold broken ones.
//
// Artifacts are found by a doublestar pattern under a directory (staging
// residue or a local destination) or read from a list file with one path per
// line. An artifact is broken when the validator rejects it or when no
// metadata file sits beside it.
package verify
