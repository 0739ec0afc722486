// Package common contains shared constants and sentinel errors used across
// medchain components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// inbound API requests.
const AuthorizationHeaderName = "Authorization"
