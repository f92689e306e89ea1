package dataset

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// Loader fetches an external RDF document and returns its quads.
type Loader interface {
	Load(ctx context.Context, source *rdf.IRI) ([]*rdf.Quad, error)
}

// HTTPLoader fetches documents over HTTP, negotiating the serialization
// formats the rdf package can parse.
type HTTPLoader struct {
	Client *http.Client
}

func NewHTTPLoader() *HTTPLoader {
	return &HTTPLoader{Client: http.DefaultClient}
}

func (l *HTTPLoader) Load(ctx context.Context, source *rdf.IRI) ([]*rdf.Quad, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Value, nil)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source.Value, err)
	}
	req.Header.Set("Accept", strings.Join(rdf.GetSupportedContentTypes(), ", "))

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source.Value, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loading %s: status %s", source.Value, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = "text/turtle"
	}
	parser, err := rdf.NewParser(contentType)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source.Value, err)
	}
	quads, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source.Value, err)
	}
	return quads, nil
}
