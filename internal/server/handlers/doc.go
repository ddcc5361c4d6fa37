// Package handlers contains the HTTP handlers of the webhookcatcher API.
//
// Handlers are grouped by concern:
//   - CaptureHandlers: inbound deliveries and synthetic test payloads
//   - BrowseHandlers: paging, search, export and listings
//   - AdminHandlers: replay and bulk delete
//   - MonitoringHandlers: feature flags and health
//
// Errors are classified with foundation/errors and written through its
// HTTPErrorAdapter; response bodies come from the server/responses package.
package handlers
