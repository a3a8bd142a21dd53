// Package requestid correlates API calls with the work they trigger.
//
// Middleware assigns every HTTP request an id (reusing a well-formed
// X-Request-ID header when present) and stores it on the context.
// LogExtractor plugs into pkg/logger so every record carries request_id.
// The dispatcher copies the id into delivery jobs and workers restore it
// with WithContext, so a notification can be traced from the POST that
// created it to the provider call that delivered it.
package requestid
