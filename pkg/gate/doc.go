// Package gate decides whether a resolved package is available in the
// private mirror, and if not, has a remote caching workflow publish it.
//
// # State machine
//
// One [Gate.Run] drives a single package through:
//
//	NotChecked -> Present                       (already mirrored)
//	NotChecked -> Absent -> Triggering -> Failed (dispatch rejected)
//	                        Triggering -> Polling -> Succeeded | Failed | TimedOut
//
// Transitions only move forward; the table in state.go is enforced and a
// disallowed transition panics. Present, Succeeded, Failed and TimedOut are
// terminal.
//
// # Dispatch and attribution
//
// The workflow receives the package name and the original version
// specifier, not the resolved version, and resolves it on its own. The
// dispatch API does not identify the run it creates, so after a grace
// delay the gate takes the newest run created since the dispatch (with a
// small clock-skew allowance). When [Config.Correlate] is set the gate also
// sends a random correlation_id input and only accepts runs whose title
// contains it; the workflow must put the input into its run-name for that
// to work.
//
// A package is dispatched at most once per Run. Failed and TimedOut
// packages are left for a later invocation to retry.
package gate
