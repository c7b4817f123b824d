package console

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-admin-auth/guard"
)

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	guard.Redirect(w, r, path)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectWithParams(w, r, path, url.Values{"error": {errorMsg}})
}

func redirectWithParams(w http.ResponseWriter, r *http.Request, path string, params url.Values) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	guard.Redirect(w, r, path)
}
