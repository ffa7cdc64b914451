// Package staging manages the local staging tree: one root per signature
// under the queue directory, and one sub-directory per item inside it.
//
// Item sub-directories are named deterministically from the identifier so a
// transform always writes to the same place and leftover residue can be
// matched back to its item.
package staging
