package commitfinder

import (
	"testing"

	"github.com/package-url/packageurl-go"
	"github.com/stretchr/testify/require"
)

func TestDetermineAbstractPurlType(t *testing.T) {
	tests := []struct {
		name string
		purl packageurl.PackageURL
		want AbstractPurlType
	}{
		{"github repository", packageurl.PackageURL{Type: "github"}, Repository},
		{"gitlab repository", packageurl.PackageURL{Type: "gitlab"}, Repository},
		{"npm artifact", packageurl.PackageURL{Type: "npm"}, Artifact},
		{"maven artifact", packageurl.PackageURL{Type: "maven"}, Artifact},
		{"unknown type", packageurl.PackageURL{Type: "conda"}, Unsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DetermineAbstractPurlType(tt.purl))
		})
	}
}
