package resolver

import (
	"errors"
	"strings"
	"testing"

	"voice-relay-go/internal/types"
)

func testResolver() *Resolver {
	return New(Template{
		BaseURL:    "https://www.call2all.co.il/ym/api/DownloadFile",
		Token:      "0000:1111",
		PathPrefix: "ivr2:/",
	})
}

const prefix = "https://www.call2all.co.il/ym/api/DownloadFile?token=0000:1111&path=ivr2:/"

func TestResolveSymbolicNames(t *testing.T) {
	tests := []struct {
		name string
		ref  types.ResourceReference
		want string
	}{
		{"stockname", types.ResourceReference{StockName: "1/000.wav"}, prefix + "1/000.wav"},
		{"stockname with separators", types.ResourceReference{StockName: "/1/000.wav/"}, prefix + "1/000.wav"},
		{"file_url without scheme", types.ResourceReference{FileURL: "//5/012.wav"}, prefix + "5/012.wav"},
		{"file_url wins over stockname", types.ResourceReference{FileURL: "a.wav", StockName: "b.wav"}, prefix + "a.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testResolver().Resolve(tt.ref)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if got.Resolved != tt.want {
				t.Fatalf("Resolved = %q, want %q", got.Resolved, tt.want)
			}
			name := strings.TrimPrefix(got.Resolved, prefix)
			if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
				t.Fatalf("name kept separators: %q", name)
			}
		})
	}
}

func TestResolvePassesAbsoluteURLs(t *testing.T) {
	for _, in := range []string{
		"https://cdn.example.com/a.wav",
		"http://example.com/x/y.wav?sig=1/",
	} {
		got, err := testResolver().Resolve(types.ResourceReference{FileURL: in, StockName: "ignored"})
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", in, err)
		}
		if got.Resolved != in {
			t.Fatalf("Resolve(%q) = %q, want unchanged", in, got.Resolved)
		}
	}
}

func TestResolveMissing(t *testing.T) {
	for _, ref := range []types.ResourceReference{
		{},
		{FileURL: "  "},
		{StockName: "///"},
	} {
		_, err := testResolver().Resolve(ref)
		if !errors.Is(err, ErrMissingParameter) {
			t.Fatalf("Resolve(%+v) error = %v, want ErrMissingParameter", ref, err)
		}
	}
}
