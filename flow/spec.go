package flow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowmesh/flowmesh/core"
)

// Spec is the declarative YAML form of a flow:
//
//	name: support
//	entry: triage_request
//	session:
//	  timeout: 30s
//	  logging_level: debug
//	  context:
//	    tenant: acme
//
// The session block accepts exactly the option surface of core.ConfigFromMap;
// unknown keys at either level fail the load.
type Spec struct {
	Name    string         `yaml:"name"`
	Entry   string         `yaml:"entry"`
	Session map[string]any `yaml:"session,omitempty"`
}

// LoadSpec reads and parses a flow spec from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flow spec %s: %w", path, err)
	}
	defer f.Close()

	spec, err := ParseSpec(f)
	if err != nil {
		return nil, fmt.Errorf("parse flow spec %s: %w", path, err)
	}

	return spec, nil
}

// ParseSpec parses a flow spec from YAML. Unknown fields are rejected.
func ParseSpec(r io.Reader) (*Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode flow spec: %w", err)
	}

	if spec.Name == "" {
		return nil, fmt.Errorf("flow spec is missing a name")
	}
	if spec.Entry == "" {
		return nil, fmt.Errorf("flow spec %s is missing an entry", spec.Name)
	}

	return &spec, nil
}

// SessionConfig decodes the spec's session block into a core.Config.
func (s *Spec) SessionConfig() (*core.Config, error) {
	if s.Session == nil {
		return &core.Config{}, nil
	}
	return core.ConfigFromMap(s.Session)
}

// FromSpec builds a Flow from a parsed spec. Option functions supply the
// runtime wiring (resolver, store, logger) the declarative form cannot carry.
func FromSpec(spec *Spec, optFns ...func(o *Options)) (*Flow, error) {
	sessCfg, err := spec.SessionConfig()
	if err != nil {
		return nil, fmt.Errorf("flow spec %s: %w", spec.Name, err)
	}

	withSession := func(o *Options) { o.SessionConfig = sessCfg }

	return New(spec.Name, spec.Entry, append([]func(o *Options){withSession}, optFns...)...)
}
