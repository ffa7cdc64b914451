// Package main hosts the cogstream CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration and product definitions,
// then hands off to the internal packages: run drives the transform and
// publish pipeline for one signature, while pending, status, staging,
// catalog, preflight, and config expose the supporting state without
// running it. Keep new behavior in internal packages and surface it here.
package main
