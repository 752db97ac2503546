// Package api defines the wire types of the submind HTTP API.
//
// # API Overview
//
// submind exposes discussions over HTTP:
//   - POST /api/v1/discussions runs a discussion to completion
//   - POST /api/v1/discussions/stream streams lifecycle events as SSE
//   - GET  /api/v1/discussions/ws streams events over a WebSocket and
//     accepts a {"type":"cancel"} command from the client
//   - GET  /api/v1/discussions and /api/v1/discussions/{id} read the archive
//   - GET  /api/v1/personas and /api/v1/config describe the setup
//   - /health, /ready and /version for probes
//
// # Authentication
//
// When api keys are configured, requests carry either the X-API-Key header
// or a bearer JWT signed with the configured secret:
//
//	X-API-Key: your-api-key
//	Authorization: Bearer <token>
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
