package httpclient

import "net/http"

// AuthConfig decorates outgoing requests with credentials.
type AuthConfig struct {
	header string
	value  string
	apply  func(*http.Request)
}

// BearerAuth sends "Authorization: Bearer <token>".
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{header: "Authorization", value: "Bearer " + token}
}

// TokenAuth sends "Authorization: Token <token>".
func TokenAuth(token string) *AuthConfig {
	return &AuthConfig{header: "Authorization", value: "Token " + token}
}

// HeaderAuth sends the key verbatim in the named header.
func HeaderAuth(name, key string) *AuthConfig {
	return &AuthConfig{header: name, value: key}
}

// CustomAuth lets the caller modify each request.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{apply: fn}
}

func (a *AuthConfig) decorate(req *http.Request) {
	if a == nil {
		return
	}
	if a.apply != nil {
		a.apply(req)
		return
	}
	if a.header != "" {
		req.Header.Set(a.header, a.value)
	}
}
