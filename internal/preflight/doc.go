// Package preflight provides readiness checks for the directories and
// executables a run depends on.
//
// The CLI "cogstream preflight" command prints every check; "cogstream run"
// performs the directory checks itself as fatal preconditions.
package preflight
