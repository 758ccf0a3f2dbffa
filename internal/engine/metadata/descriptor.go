package metadata

import (
	"depgrapher/internal/engine/identity"
	"fmt"

	"github.com/BurntSushi/toml"
)

type descriptorFile struct {
	Name           string                `toml:"name"`
	Version        string                `toml:"version"`
	TargetPlatform string                `toml:"target_platform"`
	References     []descriptorReference `toml:"references"`
}

type descriptorReference struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// DescriptorReader reads *.module.toml files, a plain-text description of a
// module's declared metadata:
//
//	name = "Contoso.Core"
//	version = "1.2.0"
//	target_platform = ".NETStandard,Version=v2.0"
//
//	[[references]]
//	name = "Contoso.Abstractions"
//	version = "1.0.0"
type DescriptorReader struct{}

func (r *DescriptorReader) Read(path string) (*Module, error) {
	var desc descriptorFile
	if _, err := toml.DecodeFile(path, &desc); err != nil {
		return nil, malformed(path, err)
	}

	id, err := identity.Parse(desc.Name, desc.Version)
	if err != nil {
		return nil, malformed(path, err)
	}

	mod := &Module{ID: id, TargetPlatform: normalizePlatform(desc.TargetPlatform)}
	for i, ref := range desc.References {
		rid, err := identity.Parse(ref.Name, ref.Version)
		if err != nil {
			return nil, malformed(path, fmt.Errorf("references[%d]: %w", i, err))
		}
		mod.References = append(mod.References, rid)
	}
	return mod, nil
}
