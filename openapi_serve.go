package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// Spec returns the OpenAPI document for the router's registry. It is
// generated on first use and cached; the registry cannot change after the
// router is built.
func (r *Router) Spec() *Document {
	r.specOnce.Do(func() {
		opts := []DocOption{DocTagDescriptions(r.tagDescs)}
		switch {
		case len(r.servers) > 0:
			opts = append(opts, DocServers(r.servers...))
		case r.basePath != "":
			opts = append(opts, DocServers(Server{URL: r.basePath}))
		}
		// NewRouter rejected registries with configuration errors.
		r.spec, _ = Generate(r.registry, Info{
			Title:       r.title,
			Version:     r.version,
			Description: r.description,
		}, opts...)
	})
	return r.spec
}

// WriteSpec writes the OpenAPI document as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer) error {
	return r.Spec().WriteJSON(w)
}

// WriteSpecYAML writes the OpenAPI document as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer) error {
	return r.Spec().WriteYAML(w)
}

// WriteJSON writes d as indented JSON to w.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteYAML writes d as YAML to w. Keys follow the JSON field names.
func (d *Document) WriteYAML(w io.Writer) error {
	return yamlCodec{}.Encode(w, d)
}

func (r *Router) serveSpec(w http.ResponseWriter, req *http.Request, format string) {
	var buf bytes.Buffer
	var err error
	if format == ContentTypeYAML {
		err = r.WriteSpecYAML(&buf)
	} else {
		err = r.WriteSpec(&buf)
	}
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set("Content-Type", format)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return
	}
	//nolint:errcheck,gosec // best-effort after WriteHeader
	w.Write(buf.Bytes())
}
