package binder

import "net/http"

// BindQuery binds `query:"name"` fields. Slices accept repeated keys and
// comma separated values.
func BindQuery() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bindFields(v, "query", ErrInvalidQuery, func(name string) []string {
			return q[name]
		})
	}
}
