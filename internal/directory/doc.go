// Package directory is the client for the remote user directory service.
//
// VoltWatch does not own user accounts. Before a device is associated
// with a user, and before a consumption report is produced, the user's
// existence is verified against the directory over the RPC bus.
//
// Transport failures surface as rpc.ErrTimeout or rpc.ErrUnreachable
// and must not be mistaken for "user does not exist": callers are
// expected to propagate them rather than coerce them to a not-found.
package directory
