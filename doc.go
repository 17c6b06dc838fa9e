// Package membership implements an invitation-based membership network:
// admins invite admins and node leaders, node leaders run a single node and
// invite members into it. Identity codes (A01, A01.04) are generated
// deterministically, onboarding rides on signed invitation tokens, and
// sessions are bearer tokens backed by a revocable store.
//
// Invitation lifecycle:
//   - Invitations carry an InvitationStatus persisted via Bun. A pending
//     invitation either gets accepted or lapses into expired; accepted is
//     terminal. InvitationStateMachine centralizes the transition graph,
//     timestamps, hooks, and persistence.
//   - AcceptInvitationHandler provisions the User (and Node/Member rows for
//     leader and member invites) in a single transaction together with the
//     status flip, so a replayed token can never provision twice.
//
// Sessions:
//   - SessionStore persists one session row per (user, ip, user agent)
//     fingerprint. Logging in replaces the row for that fingerprint, logout
//     deletes it, and protected routes re-check liveness on every request so
//     revocation takes effect before the JWT naturally expires.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the
//     invitation commands, and the state machine. Sinks run best-effort
//     (errors are logged) so you can forward events to a database or queue
//     without blocking the request path.
package membership
