// Package services defines shared utilities consumed by the pipeline stages
// and the external collaborators they drive.
//
// Key responsibilities:
//   - Context helpers that stamp item identifiers, stage names, signatures,
//     and run identifiers for logging.
//   - Structured error markers plus the Wrap helper so per-item failures and
//     fatal preconditions can be told apart with errors.Is.
//
// The converter and uploader sub-packages wrap the external tools that turn a
// source item into artifacts and ship those artifacts to remote storage.
package services
