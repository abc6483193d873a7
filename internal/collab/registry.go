package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPRegistryClient resolves artifact-type PURLs to a source repository URL
// via a deps.dev-style JSON API (spec §4.4.3's "registry lookups"). Requests
// go through retryablehttp so a transient 5xx/connection failure during a
// long commit-finder run doesn't abort the whole resolution.
type HTTPRegistryClient struct {
	client  *retryablehttp.Client
	baseURL string
}

// NewHTTPRegistryClient builds a client against baseURL (e.g.
// "https://api.deps.dev/v3"). A nil logger disables retryablehttp's default
// request logging.
func NewHTTPRegistryClient(baseURL string) *HTTPRegistryClient {
	client := retryablehttp.NewClient()
	client.Logger = nil
	return &HTTPRegistryClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// depsDevSystem maps a PURL type to the registry's ecosystem name. Types not
// present here are rejected by the caller before ever reaching this client
// (spec §4.4.1's UNSUPPORTED classification happens upstream).
var depsDevSystem = map[string]string{
	"npm":      "npm",
	"pypi":     "pypi",
	"maven":    "maven",
	"golang":   "go",
	"cargo":    "cargo",
	"nuget":    "nuget",
	"gem":      "rubygems",
}

type registryVersionResponse struct {
	Links struct {
		Repo string `json:"repo"`
	} `json:"links"`
}

// RepositoryURL looks up the source repository advertised by the registry
// for the given package coordinates. namespace is joined into the package
// name with a "/" the way npm scopes (@scope/name) and Maven groupId:
// artifactId are both conventionally rendered by deps.dev.
func (c *HTTPRegistryClient) RepositoryURL(ctx context.Context, purlType, namespace, name string) (string, error) {
	system, ok := depsDevSystem[purlType]
	if !ok {
		return "", fmt.Errorf("registry client: unsupported purl type %q", purlType)
	}
	pkgName := name
	if namespace != "" {
		pkgName = namespace + "/" + name
	}
	reqURL := fmt.Sprintf("%s/systems/%s/packages/%s", c.baseURL, system, url.PathEscape(pkgName))

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build registry request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry request for %s: %w", pkgName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("registry request for %s: status %d", pkgName, resp.StatusCode)
	}

	var body registryVersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode registry response for %s: %w", pkgName, err)
	}
	if body.Links.Repo == "" {
		return "", fmt.Errorf("registry response for %s has no repository link", pkgName)
	}
	return body.Links.Repo, nil
}
