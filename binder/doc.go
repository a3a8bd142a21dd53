// Package binder fills request structs from JSON bodies, chi path
// parameters and query strings. Each binder is a func(*http.Request, any) error
// so handler.Wrap can chain them.
package binder
