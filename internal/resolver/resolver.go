package resolver

import (
	"errors"
	"fmt"
	"strings"

	"voice-relay-go/internal/types"
)

var ErrMissingParameter = errors.New("missing 'file_url' or 'stockname' parameter")

const schemePrefix = "http"

// Template describes the download service used for symbolic names:
// {BaseURL}?token={Token}&path={PathPrefix}{name}
type Template struct {
	BaseURL    string
	Token      string
	PathPrefix string
}

type Resolver struct {
	tpl Template
}

func New(tpl Template) *Resolver {
	return &Resolver{tpl: tpl}
}

// Resolve fills ref.Resolved. file_url wins over stockname; a file_url
// without a scheme is treated as a symbolic name.
func (r *Resolver) Resolve(ref types.ResourceReference) (types.ResourceReference, error) {
	raw := strings.TrimSpace(ref.FileURL)
	if raw == "" {
		raw = strings.TrimSpace(ref.StockName)
	}
	if raw == "" {
		return ref, ErrMissingParameter
	}
	if strings.HasPrefix(raw, schemePrefix) {
		ref.Resolved = raw
		return ref, nil
	}

	name := strings.Trim(raw, "/")
	if name == "" {
		return ref, ErrMissingParameter
	}
	ref.Resolved = r.URLFor(name)
	return ref, nil
}

// URLFor splices an already sanitized name into the template.
func (r *Resolver) URLFor(name string) string {
	return fmt.Sprintf("%s?token=%s&path=%s%s", r.tpl.BaseURL, r.tpl.Token, r.tpl.PathPrefix, name)
}
