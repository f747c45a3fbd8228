// Package cli implements the workshop-dl command tree.
//
// Every command loads settings from --config (plus WORKSHOP_* environment
// overrides), opens the registry at the content root and acts as a small
// reference host: install, subscribe and unsubscribe drive the registry,
// while list, state, path and info inspect it.
package cli
