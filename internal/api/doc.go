// Package api defines the transport DTOs for the HTTP surface and a service
// layer that adapts the scheduler and queue store to them. Handlers stay thin:
// they decode requests, call into Service, and map classified errors to
// status codes.
package api
