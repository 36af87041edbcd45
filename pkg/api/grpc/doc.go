// Package grpc serves the standard gRPC health protocol for the challenge
// service. The "challenge" service reports NOT_SERVING while the worker
// pool is saturated.
package grpc
