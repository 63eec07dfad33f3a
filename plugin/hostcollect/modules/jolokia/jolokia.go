// SPDX-License-Identifier: GPL-3.0-or-later

package jolokia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/netdata/netdata/go/hostcollect/pkg/web"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
)

func init() {
	module.Register("jolokia", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "reads JMX attributes through a Jolokia agent",
	})
}

func New() *Jolokia {
	return &Jolokia{
		Config: Config{
			HTTPConfig: web.HTTPConfig{
				RequestConfig: web.RequestConfig{
					URL: "http://127.0.0.1:8778/jolokia/",
				},
			},
		},
	}
}

type (
	Config struct {
		web.HTTPConfig `yaml:",inline" json:""`
		Instance       string       `yaml:"instance,omitempty" json:"instance"`
		Beans          []BeanConfig `yaml:"beans" json:"beans"`
	}
	// BeanConfig selects one JMX attribute, optionally narrowed by an inner path.
	BeanConfig struct {
		MBean        string `yaml:"mbean" json:"mbean"`
		Attribute    string `yaml:"attribute" json:"attribute"`
		Path         string `yaml:"path,omitempty" json:"path"`
		Type         string `yaml:"type" json:"type"`
		TypeInstance string `yaml:"type_instance,omitempty" json:"type_instance"`
	}
)

type Jolokia struct {
	module.Base
	Config `yaml:",inline" json:""`

	httpClient *http.Client
	body       string
}

func (j *Jolokia) Configuration() any {
	return j.Config
}

func (j *Jolokia) Register(ctx context.Context, host module.Host) error {
	if j.URL == "" {
		return errors.New("'url' not set")
	}
	if len(j.Beans) == 0 {
		return errors.New("no beans configured")
	}
	for _, b := range j.Beans {
		if b.MBean == "" || b.Attribute == "" {
			return errors.New("bean 'mbean' and 'attribute' are required")
		}
		ds, err := host.TypesDB().Get(b.Type)
		if err != nil {
			return fmt.Errorf("bean '%s': %w", b.MBean, err)
		}
		if len(ds.Sources) != 1 {
			return fmt.Errorf("bean '%s': type '%s' must have exactly one source", b.MBean, b.Type)
		}
	}

	body, err := bulkRequestBody(j.Beans)
	if err != nil {
		return err
	}
	j.body = body
	j.httpClient = web.NewHTTPClient(j.ClientConfig)

	return host.RegisterRead(ctx, "jolokia", func(ctx context.Context) error {
		return j.read(ctx, host)
	})
}

type readRequest struct {
	Type      string `json:"type"`
	MBean     string `json:"mbean"`
	Attribute string `json:"attribute"`
	Path      string `json:"path,omitempty"`
}

func bulkRequestBody(beans []BeanConfig) (string, error) {
	reqs := make([]readRequest, 0, len(beans))
	for _, b := range beans {
		reqs = append(reqs, readRequest{Type: "read", MBean: b.MBean, Attribute: b.Attribute, Path: b.Path})
	}
	bs, err := json.Marshal(reqs)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func (j *Jolokia) read(ctx context.Context, host module.Host) error {
	resp, err := j.fetch(ctx)
	if err != nil {
		return err
	}

	vls, errs := j.parse(host.TypesDB(), resp)
	for _, vl := range vls {
		if err := host.Dispatch(ctx, vl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *Jolokia) fetch(ctx context.Context) ([]byte, error) {
	cfg := j.RequestConfig.Copy()
	cfg.Method = http.MethodPost
	cfg.Body = j.body
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	cfg.Headers["Content-Type"] = "application/json"

	req, err := web.NewHTTPRequest(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %v", err)
	}

	return web.DoOK(j.httpClient, req.WithContext(ctx))
}
