// Package auth provides authentication and authorisation for VoltWatch.
//
// VoltWatch does not store user accounts; identities live in the remote
// user directory and API callers present JWT access tokens issued by the
// platform's identity service with VoltWatch's shared secret. This
// package validates those tokens and maps roles to the capabilities the
// HTTP layer enforces.
//
// Two roles exist: users read their own devices and reports, admins
// additionally manage the device registry and associations.
package auth
