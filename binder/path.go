package binder

import (
	"net/http"
)

// Path binds `path:"name"` fields using extractor, typically chi.URLParam.
//
//	type GetRequest struct {
//		ID string `path:"id"`
//	}
//
//	r.Get("/notifications/{id}", handler.Wrap(get,
//		handler.WithBinders[GetRequest](binder.Path(chi.URLParam)),
//	))
func Path(extractor func(r *http.Request, key string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return ErrInvalidPath
		}
		return bindFields(v, "path", ErrInvalidPath, func(name string) []string {
			if s := extractor(r, name); s != "" {
				return []string{s}
			}
			return nil
		})
	}
}
