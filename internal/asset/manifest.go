package asset

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"gunplay/internal/animation"
	"gunplay/internal/weapon"
)

//go:embed clips.yaml
var defaultManifest []byte

// Manifest lists the clips shipped for each weapon asset prefix.
type Manifest struct {
	Weapons map[string]WeaponAssets `yaml:"weapons"`
}

// WeaponAssets describes one weapon's clip set.
type WeaponAssets struct {
	Scope bool               `yaml:"scope"`
	Clips map[string]float64 `yaml:"clips"`
}

// ParseManifest decodes a YAML clip manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse clip manifest: %w", err)
	}
	for name, w := range m.Weapons {
		for clip, d := range w.Clips {
			if d <= 0 {
				return Manifest{}, fmt.Errorf("clip %s_%s: duration must be positive, got %v", name, clip, d)
			}
		}
	}
	return m, nil
}

// DefaultManifest returns the embedded manifest.
func DefaultManifest() Manifest {
	m, err := ParseManifest(defaultManifest)
	if err != nil {
		panic(err)
	}
	return m
}

// Build creates a fresh mixer, tracks and scene nodes for every spec listed in
// the manifest. Specs without an entry get nothing, which the animation
// machine reports as missing assets.
func Build(specs []weapon.Spec, m Manifest) *Registry {
	reg := NewRegistry()
	for _, spec := range specs {
		wa, ok := m.Weapons[spec.Name]
		if !ok {
			continue
		}

		mixer := animation.NewHeadless()
		for _, c := range animation.Clips {
			if d, ok := wa.Clips[c.Suffix()]; ok {
				mixer.Add(animation.NewTrack(animation.ClipName(spec.Name, c), d))
			}
		}

		reg.Put(animation.MixerKey(spec.Name), mixer)
		reg.Put(animation.ActionsKey(spec.Name), mixer.Actions())
		reg.Put(animation.ArmatureKey(spec.Name), NewNode(spec.Name+"_Armature"))
		if wa.Scope {
			reg.Put(animation.ScopeKey(spec.Name), NewNode(spec.Name+"_Scope"))
		}
	}
	return reg
}
