// Package notifier relays pipeline results to a fixed chat destination.
//
// Plan and DiagnosticPlan decide what to send from the transcription and
// summarization outcomes; they are pure and never touch the network. A
// Notifier then dispatches a plan message by message through a Dispatcher.
// Dispatch is best-effort: failures are logged and never reach the caller,
// so the HTTP response does not depend on the side channel.
package notifier
