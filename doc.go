// Package brewy provides multi-tenant authentication primitives (JWT issuance
// and validation, bun-backed repositories, HTTP controllers) for the Brewy
// backend.
//
// Roles and tenancy:
//   - Users carry a UserRole (AGENT, ADMIN, OWNER, SUPER_OWNER) scoped to one
//     organization. Authorize resolves role gates; SUPER_OWNER passes every
//     gate across tenants.
//   - Organizations cap their membership with an atomic in-database counter so
//     concurrent user creation never oversubscribes a tenant.
//
// Lockout:
//   - Failed logins increment a per-user counter through a single UPDATE
//     statement. Reaching the threshold sets locked_until, and a successful
//     login after the window resets the counter. Locked accounts surface as
//     invalid credentials at the boundary.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the authenticator,
//     the lockout tracker, and the command handlers to describe login,
//     registration, and user creation events. Sinks run best-effort so a
//     forwarding failure never blocks authentication.
package brewy
