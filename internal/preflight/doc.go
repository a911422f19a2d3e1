// Package preflight provides readiness checks for the filesystem paths,
// executables, and notification endpoint wavecatch depends on.
//
// The daemon runs RunAll at startup and logs failed checks as warnings; the
// CLI "wavecatch status" command runs the same individual checks.
package preflight
