package transport

import (
	"net/http"
	"net/url"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Authenticator applies a credential to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth sends the credential in the Authorization header.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// QueryAuth sends the credential as a query parameter. Streaming endpoints
// use it because browsers cannot set headers on an EventSource.
type QueryAuth struct {
	Param string
}

// NewQueryAuth returns a QueryAuth for param, defaulting to "token".
func NewQueryAuth(param string) *QueryAuth {
	if param == "" {
		param = constants.DefaultTokenParam
	}
	return &QueryAuth{Param: param}
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, token string) {
	if req.URL == nil || token == "" {
		return
	}
	query := req.URL.Query()
	query.Set(a.param(), token)
	req.URL.RawQuery = query.Encode()
}

// ApplyURL returns rawURL with the credential set as a query parameter,
// replacing any existing value.
func (a *QueryAuth) ApplyURL(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.NewValidationError("endpoint", rawURL, err.Error())
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.NewValidationError("endpoint", rawURL, "must be an absolute URL")
	}
	query := u.Query()
	query.Set(a.param(), token)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (a *QueryAuth) param() string {
	if a.Param == "" {
		return constants.DefaultTokenParam
	}
	return a.Param
}
