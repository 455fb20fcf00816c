// Package common contains constants, sentinel errors and the error taxonomy
// shared by the zenote client engine and the remote store server.
package common

// AccessTokenHeaderName is the gRPC metadata key (and websocket query
// parameter) carrying the access token.
const AccessTokenHeaderName = "access_token"

// DefaultRetentionDays is how long a soft-deleted note stays recoverable.
const DefaultRetentionDays = 30
