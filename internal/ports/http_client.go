package ports

import "net/http"

// HTTPClient performs batch POSTs. *http.Client satisfies it; tests and
// embedders can inject a client with custom transport or TLS settings.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
