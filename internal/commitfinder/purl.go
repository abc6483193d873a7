package commitfinder

import "github.com/package-url/packageurl-go"

// AbstractPurlType classifies a PURL per spec §4.4.1.
type AbstractPurlType int

const (
	Unsupported AbstractPurlType = iota
	Repository
	Artifact
)

// repositoryTypes are the known VCS-host PURL types (spec §4.4.1:
// "REPOSITORY types are the known VCS hosts"). "generic" is included
// because a generic PURL carries its own vcs_url qualifier rather than
// implying a host from its type.
var repositoryTypes = map[string]bool{
	"github":    true,
	"bitbucket": true,
	"gitlab":    true,
	"generic":   true,
}

// artifactTypes are the registry ecosystems this deployment's RegistryClient
// collaborator knows how to resolve (spec §4.4.1: "known to the deps.dev
// collaborator"). Kept in sync with internal/collab's depsDevSystem map by
// convention, not by import, so commitfinder never needs to import collab's
// HTTP implementation to classify a PURL.
var artifactTypes = map[string]bool{
	"npm":    true,
	"pypi":   true,
	"maven":  true,
	"golang": true,
	"cargo":  true,
	"nuget":  true,
	"gem":    true,
}

// DetermineAbstractPurlType classifies purl per spec §4.4.1.
func DetermineAbstractPurlType(purl packageurl.PackageURL) AbstractPurlType {
	switch {
	case repositoryTypes[purl.Type]:
		return Repository
	case artifactTypes[purl.Type]:
		return Artifact
	default:
		return Unsupported
	}
}
