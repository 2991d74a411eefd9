// file: internal/registry/resources.go
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/marekdano/weather-mcp-server/internal/mcperror"
	"github.com/marekdano/weather-mcp-server/internal/schema"
	"github.com/yosida95/uritemplate/v3"
)

// Content is one item of a resource read.
type Content struct {
	URI      string
	MIMEType string
	Text     string
}

// ResourceHandler produces the contents for a URI matching the resource's
// template. vars holds the extracted template variables.
type ResourceHandler func(ctx context.Context, uri string, vars map[string]string) ([]Content, error)

// Resource describes a family of readable URIs.
type Resource struct {
	Name        string
	URITemplate string
	Title       string
	Description string
	MIMEType    string
	Handler     ResourceHandler
}

type resourceEntry struct {
	desc     Resource
	template *uritemplate.Template
}

// RegisterResource adds a resource template. Names are unique among resources.
func (r *Registry) RegisterResource(res Resource) error {
	if res.Name == "" {
		return mcperror.NewConfigError("resource.name", "resource name is empty")
	}
	if err := schema.ValidateName(schema.EntityTypeResource, res.Name); err != nil {
		return errors.WithStack(&mcperror.ConfigError{Setting: "resource.name", Message: "invalid resource name", Cause: err})
	}
	if res.Handler == nil {
		return mcperror.NewConfigError("resource.handler", fmt.Sprintf("resource %q has no handler", res.Name))
	}
	tmpl, err := uritemplate.New(res.URITemplate)
	if err != nil {
		return errors.WithStack(&mcperror.ConfigError{
			Setting: "resource.uri_template",
			Message: fmt.Sprintf("resource %q has an invalid URI template %q", res.Name, res.URITemplate),
			Cause:   err,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return mcperror.NewConfigError("registry", fmt.Sprintf("cannot register resource %q: registry is sealed", res.Name))
	}
	if _, exists := r.resources[res.Name]; exists {
		return mcperror.NewDuplicateNameError("resource", res.Name)
	}
	r.resources[res.Name] = &resourceEntry{desc: res, template: tmpl}
	r.logger.Info("Resource registered.", "resource", res.Name, "uriTemplate", res.URITemplate)
	return nil
}

// Resources returns the registered resource descriptors sorted by name.
func (r *Registry) Resources() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resource, 0, len(r.resources))
	for _, e := range r.resources {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// match finds the resource whose template matches uri. Templates are tried
// in name order. Values are percent-decoded per RFC 6570, and a match that
// leaves any variable empty is rejected.
func (r *Registry) match(uri string) (*resourceEntry, map[string]string) {
	r.mu.RLock()
	entries := make([]*resourceEntry, 0, len(r.resources))
	for _, e := range r.resources {
		entries = append(entries, e)
	}
	r.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].desc.Name < entries[j].desc.Name })

	for _, e := range entries {
		values := e.template.Match(uri)
		if values == nil {
			continue
		}
		vars := make(map[string]string, len(e.template.Varnames()))
		for _, name := range e.template.Varnames() {
			vars[name] = values.Get(name).String()
			if vars[name] == "" {
				vars = nil
				break
			}
		}
		if vars == nil {
			continue
		}
		return e, vars
	}
	return nil, nil
}

// ReadResource resolves uri against the registered templates and returns the
// matching handler's contents.
func (r *Registry) ReadResource(ctx context.Context, uri string) (contents []Content, err error) {
	entry, vars := r.match(uri)
	if entry == nil {
		r.logger.Debug("No resource matches URI.", "uri", uri)
		return nil, mcperror.NewUnknownResourceError(uri)
	}
	name := entry.desc.Name
	defer func() {
		if r.recorder != nil {
			r.recorder.RecordResourceRead(name, outcome(err))
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			err = mcperror.NewHandlerError(name, errors.Newf("panic: %v", p))
		}
	}()

	contents, err = entry.desc.Handler(ctx, uri, vars)
	if err != nil {
		if !mcperror.IsTaxonomy(err) {
			err = mcperror.NewHandlerError(name, err)
		}
		return nil, err
	}
	for i := range contents {
		if contents[i].URI == "" {
			contents[i].URI = uri
		}
		if contents[i].MIMEType == "" {
			contents[i].MIMEType = entry.desc.MIMEType
		}
	}
	return contents, nil
}
