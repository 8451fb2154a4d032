// Package bridge implements command/response correlation for the bridge
// link.
//
// The transport is asynchronous: one logical command may arrive interleaved
// with unrelated traffic, such as a previous timed-out query's late reply.
// The Client matches an outgoing command to its reply by action value. While
// waiting for one action, messages for other actions are held aside and
// returned to the front of the queue once the wait concludes, so no message
// is lost merely because it arrived during an unrelated wait.
//
// At most one wait may be outstanding per action value at a time. This is a
// caller-side discipline, not enforced internally: the firmware echoes only
// the action, so two concurrent waiters for the same action could each steal
// the other's reply. The session layer satisfies this structurally by
// issuing all commands from a single goroutine.
package bridge
