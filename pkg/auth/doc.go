// Package auth defines the normalized user profile model shared by the
// mother identity client, the local API client and the session layer,
// together with the error taxonomy of the SSO handshake.
//
// The mother backend is not consistent about field names (`permissions`
// vs `permisos`); normalization happens once, at the decode boundary, so
// nothing above this package ever branches on wire variants.
package auth
