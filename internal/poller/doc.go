// Package poller fetches submission statuses from the review API on a fixed
// interval.
//
// The main components are:
//
//   - [Client]: HTTP client for the status endpoint with timeout and size limits
//   - [Scheduler]: Runs sequential poll iterations with a fixed sleep between them
//   - [PollResult]: Outcome of one iteration
//   - [RetryPolicy]: Backoff budget for temporary fetch failures
//
// Users of the homeworkbot library should not need to interact with this
// package directly. Configuration is done through the main homeworkbot package.
package poller
