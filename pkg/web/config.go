// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"maps"

	"github.com/netdata/netdata/go/hostcollect/pkg/confopt"
)

// HTTPConfig is the HTTP part of a plugin configuration.
type HTTPConfig struct {
	RequestConfig `yaml:",inline" json:""`
	ClientConfig  `yaml:",inline" json:""`
}

// RequestConfig is the configuration of the HTTP request.
type RequestConfig struct {
	// URL specifies the URL to access.
	URL string `yaml:"url" json:"url"`

	// Username and Password are used for basic authentication.
	Username string `yaml:"username,omitempty" json:"username"`
	Password string `yaml:"password,omitempty" json:"password"`

	// BearerTokenFile is a file holding a token sent as "Authorization: Bearer <token>".
	// It takes precedence over basic authentication.
	BearerTokenFile string `yaml:"bearer_token_file,omitempty" json:"bearer_token_file"`

	// Method specifies the HTTP method. An empty string means GET.
	Method string `yaml:"method,omitempty" json:"method"`

	// Headers specifies the HTTP request header fields to be sent by the client.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers"`

	// Body specifies the HTTP request body to be sent by the client.
	Body string `yaml:"body,omitempty" json:"body"`
}

// Copy makes a full copy of the RequestConfig.
func (r RequestConfig) Copy() RequestConfig {
	r.Headers = maps.Clone(r.Headers)
	return r
}

// ClientConfig is the configuration of the HTTP client.
type ClientConfig struct {
	// Timeout specifies a time limit for requests made by this client.
	// Zero means the default of 5 seconds.
	Timeout confopt.Duration `yaml:"timeout,omitempty" json:"timeout"`

	// NotFollowRedirect makes the client return the first redirect response.
	NotFollowRedirect bool `yaml:"not_follow_redirects,omitempty" json:"not_follow_redirects"`

	// TLSSkipVerify disables server certificate verification.
	TLSSkipVerify bool `yaml:"tls_skip_verify,omitempty" json:"tls_skip_verify"`
}
