package weapon

import (
	"sort"

	"gunplay/internal/recoil"
)

// Spec represents a weapon configuration
type Spec struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"` // asset prefix: <Name>_draw, <Name>_Armature
	Classification Classification `json:"classification"`
	Mode           FireMode       `json:"mode"`
	MagazineSize   int            `json:"magazineSize"`
	ReserveAmmo    int            `json:"reserveAmmo"`
	FireInterval   float64        `json:"fireInterval"`    // seconds
	RecoverTime    float64        `json:"recoverDuration"` // seconds
	ReloadTime     float64        `json:"reloadDuration"`  // seconds
	RecoilControl  float64        `json:"recoilControl"`
	AccurateRange  float64        `json:"accurateRange"`

	Pattern    *recoil.Pattern `json:"-"`
	AimScale   recoil.Scale    `json:"aimScale"`
	DeltaScale recoil.Scale    `json:"deltaScale"`

	DrawTimeScale float64 `json:"drawTimeScale"`
	JumpTimeScale float64 `json:"jumpTimeScale"`
}

// HasPattern reports whether the weapon fires along a recoil curve.
func (s Spec) HasPattern() bool {
	return s.Mode == Automatic && s.Pattern != nil
}

// IsSniper reports whether the weapon uses a scope overlay instead of an ADS clip.
func (s Spec) IsSniper() bool {
	return s.Classification == Sniper
}

// Catalog is the map of all available weapons
var Catalog = map[string]Spec{
	"ak": {
		ID:             "ak",
		Name:           "AK",
		Classification: Rifle,
		Mode:           Automatic,
		MagazineSize:   30,
		ReserveAmmo:    90,
		FireInterval:   100.0 / 600.0,
		RecoverTime:    0.4,
		ReloadTime:     2.5,
		RecoilControl:  8,
		AccurateRange:  50,
		Pattern:        &recoil.AK47Pattern,
		AimScale:       recoil.Scale{BulletCount: 30, RateX: 0.2, RateY: 0.15, RecoilForce: 1.4},
		DeltaScale:     recoil.Scale{BulletCount: 30, RateX: 0.2, RateY: 0.15, RecoilForce: 1},
		DrawTimeScale:  2.0,
		JumpTimeScale:  1.2,
	},
	"m416": {
		ID:             "m416",
		Name:           "M416",
		Classification: Rifle,
		Mode:           Automatic,
		MagazineSize:   30,
		ReserveAmmo:    60,
		FireInterval:   60.0 / 600.0,
		RecoverTime:    0.368,
		ReloadTime:     3,
		RecoilControl:  6,
		AccurateRange:  120,
		Pattern:        &recoil.AK47Pattern,
		AimScale:       recoil.Scale{BulletCount: 30, RateX: 0.2, RateY: 0.15, RecoilForce: 1.2},
		DeltaScale:     recoil.Scale{BulletCount: 30, RateX: 0.2, RateY: 0.15, RecoilForce: 1.2},
		DrawTimeScale:  1.4,
		JumpTimeScale:  0.7,
	},
	"awp": {
		ID:             "awp",
		Name:           "AWP",
		Classification: Sniper,
		Mode:           SemiAutomatic,
		MagazineSize:   12,
		ReserveAmmo:    12,
		FireInterval:   90.0 / 60.0,
		RecoverTime:    0.34,
		ReloadTime:     1,
		RecoilControl:  1.5,
		AccurateRange:  120,
		DrawTimeScale:  1.4,
		JumpTimeScale:  1.2,
	},
	"glock": {
		ID:             "glock",
		Name:           "Glock",
		Classification: Pistol,
		Mode:           SemiAutomatic,
		MagazineSize:   12,
		ReserveAmmo:    48,
		FireInterval:   17.0 / 60.0,
		RecoverTime:    0.34,
		ReloadTime:     1,
		RecoilControl:  5,
		AccurateRange:  120,
		DrawTimeScale:  2.0,
		JumpTimeScale:  1.2,
	},
	"knife": {
		ID:             "knife",
		Name:           "knife",
		Classification: Melee,
		Mode:           MeleeStrike,
		FireInterval:   100.0 / 600.0,
		DrawTimeScale:  2.0,
		JumpTimeScale:  1.2,
	},
}

// DefaultSpecID is returned for unknown lookups.
const DefaultSpecID = "knife"

// GetSpec returns a weapon by ID, defaults to the knife
func GetSpec(id string) Spec {
	if s, ok := Catalog[id]; ok {
		return s
	}
	return Catalog[DefaultSpecID]
}

// LookupSpec returns a weapon by ID and whether it exists.
func LookupSpec(id string) (Spec, bool) {
	s, ok := Catalog[id]
	return s, ok
}

// AllSpecs returns all weapons sorted by slot then ID
func AllSpecs() []Spec {
	specs := make([]Spec, 0, len(Catalog))
	for _, s := range Catalog {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool {
		si, sj := SlotFor(specs[i].Classification), SlotFor(specs[j].Classification)
		if si != sj {
			return si < sj
		}
		return specs[i].ID < specs[j].ID
	})
	return specs
}
