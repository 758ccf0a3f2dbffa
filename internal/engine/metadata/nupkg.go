package metadata

import (
	"archive/zip"
	"depgrapher/internal/engine/identity"
	"fmt"
	"path"
	"sort"
	"strings"
)

// NupkgReader reads the manifest embedded at the root of a .nupkg archive.
// If the manifest declares no framework groups, the first lib/<framework>/
// folder in the archive provides the target platform.
type NupkgReader struct {
	Nuspec *NuspecReader
}

func (r *NupkgReader) Read(file string) (*Module, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, malformed(file, err)
	}
	defer zr.Close()

	var manifest *zip.File
	frameworks := make(map[string]bool)
	for _, f := range zr.File {
		name := f.Name
		if !strings.Contains(name, "/") && strings.HasSuffix(strings.ToLower(name), ".nuspec") {
			manifest = f
		}
		if rest, ok := strings.CutPrefix(name, "lib/"); ok {
			if fw, _, found := strings.Cut(rest, "/"); found && fw != "" {
				frameworks[fw] = true
			}
		}
	}
	if manifest == nil {
		return nil, malformed(file, fmt.Errorf("no .nuspec entry in %s", path.Base(file)))
	}

	rc, err := manifest.Open()
	if err != nil {
		return nil, malformed(file, err)
	}
	defer rc.Close()

	nuspec := r.Nuspec
	if nuspec == nil {
		nuspec = &NuspecReader{}
	}
	mod, err := nuspec.Decode(rc)
	if err != nil {
		return nil, malformed(file, err)
	}

	if mod.TargetPlatform == identity.UnknownPlatform && len(frameworks) > 0 {
		mod.TargetPlatform = pickFramework(frameworks, nuspec.PreferredFramework)
	}
	return mod, nil
}

func pickFramework(frameworks map[string]bool, preferred string) string {
	names := make([]string, 0, len(frameworks))
	for fw := range frameworks {
		if strings.EqualFold(fw, preferred) {
			return fw
		}
		names = append(names, fw)
	}
	sort.Strings(names)
	return names[0]
}
