// Package handler turns typed request handlers into http.HandlerFunc.
//
// A HandlerFunc receives a Context and a request struct filled by binders
// (see package binder) and returns a Response. Wrap runs the binders,
// applies decorators, renders the Response and routes every failure through
// an ErrorHandler.
//
// Responses use one JSON envelope: {"data": ...} on success and
// {"error": {"code", "message", "details"}} on failure. HTTPError picks the
// status of an error; ValidationError renders as 422 with per-field details.
package handler
