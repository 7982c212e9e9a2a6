// Package domain provides shared domain-level sentinel errors.
//
// The sentinels form the caller-visible error taxonomy: handlers map them
// to HTTP status codes, services wrap them with context via %w.
package domain

import "errors"

// ErrUnauthenticated indicates the request carries no caller identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrPermissionDenied indicates the caller is authenticated but lacks the
// privilege for the operation, or a target crosses the tenant boundary.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument indicates a malformed request payload.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUpstream indicates the identity provider or document store failed for
// reasons outside this system's control.
var ErrUpstream = errors.New("upstream error")
