// Package product describes the batch products cogstream knows how to
// stream and the signatures that scope one batch job.
//
// A Product names its source tree (or catalog), the remote prefix its
// artifacts are published under, and a Layout. Layout is a closed tagged
// variant: Flat products place every artifact set under a templated remote
// directory, TimePartitioned products derive x/y tile and date directories
// from the artifact name. RemoteDir dispatches on the variant with a type
// switch.
//
// Product definitions are read from YAML; a built-in set mirrors the
// products the original batch jobs shipped with.
package product
