// Package preflight provides readiness checks for filesystem paths and
// external services lector depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before starting the workflow. If any check
//     fails, startup halts to avoid burning hours of synthesis on a doomed
//     run.
//   - The CLI "lector status" command uses individual check functions
//     (CheckNtfy, CheckDirectoryAccess, CheckSystemDeps) to display health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
