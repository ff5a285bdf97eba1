package game

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"gunplay/internal/animation"
	"gunplay/internal/input"
	"gunplay/internal/weapon"
)

// SprayConfig scripts one burst with a single weapon for offline analysis.
type SprayConfig struct {
	Weapon     string // catalog ID
	Shots      int    // 0 empties the magazine
	Seed       int64
	FPS        int      // default 60
	Targets    []Target // nil uses DefaultTargets
	MaxSeconds float64  // simulated seconds per phase, default 10
}

// SprayResult summarises a scripted burst and the recovery after it.
type SprayResult struct {
	Weapon         string         `json:"weapon"`
	Shots          int            `json:"shots"`
	Hits           map[string]int `json:"hits"`
	Misses         int            `json:"misses"`
	AimPoints      []mgl64.Vec2   `json:"aimPoints"`
	PeakPitch      float64        `json:"peakPitch"`
	ReleaseCamera  weapon.Camera  `json:"releaseCamera"`
	FinalCamera    weapon.Camera  `json:"finalCamera"`
	SprayFrames    int            `json:"sprayFrames"`
	RecoveryFrames int            `json:"recoveryFrames"`
	Recovered      bool           `json:"recovered"`
}

// Accuracy returns hits per shot.
func (r SprayResult) Accuracy() float64 {
	if r.Shots == 0 {
		return 0
	}
	return float64(r.Shots-r.Misses) / float64(r.Shots)
}

// switchEvents maps a slot to the input that draws it.
var switchEvents = map[weapon.Slot]input.Event{
	weapon.SlotPrimary:   input.SwitchPrimary,
	weapon.SlotSecondary: input.SwitchSecondary,
	weapon.SlotMelee:     input.SwitchMelee,
}

// Spray draws the weapon, fires Shots rounds at a fixed frame rate against a
// TargetBoard, releases the trigger and runs frames until the camera settles.
// Automatic weapons hold the trigger; others are pressed once per frame pair.
func Spray(cfg SprayConfig, logger zerolog.Logger) (SprayResult, error) {
	spec, ok := weapon.LookupSpec(cfg.Weapon)
	if !ok {
		return SprayResult{}, fmt.Errorf("unknown weapon %q", cfg.Weapon)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.MaxSeconds <= 0 {
		cfg.MaxSeconds = 10
	}
	if cfg.Shots <= 0 {
		cfg.Shots = max(spec.MagazineSize, 1)
	}
	targets := cfg.Targets
	if targets == nil {
		targets = DefaultTargets()
	}

	board := NewTargetBoard(DefaultFOV, 16.0/9.0, targets...)
	rig, err := NewRig(RigConfig{
		Loadout: []string{spec.ID},
		Seed:    cfg.Seed,
		Scanner: board,
	}, logger)
	if err != nil {
		return SprayResult{}, err
	}

	// Deltas pass through a FrameClock, so simulated time per frame never
	// exceeds DefaultMaxDelta however low the frame rate.
	dt := math.Min(1/float64(cfg.FPS), DefaultMaxDelta)
	step := time.Second / time.Duration(cfg.FPS)
	maxFrames := int(math.Ceil(cfg.MaxSeconds / dt))
	now := time.Unix(0, 0)
	clock := NewFrameClock(DefaultMaxDelta)
	frame := func() []FrameEvent {
		out := rig.Frame(clock.Tick(now), now)
		now = now.Add(step)
		return out
	}

	res := SprayResult{Weapon: spec.Name}

	rig.Input().EnqueueAt(switchEvents[weapon.SlotFor(spec.Classification)], now)
	for i := 0; i < maxFrames; i++ {
		frame()
		if item := rig.Inventory().Active(); item != nil && item.State.Active() {
			break
		}
	}
	item := rig.Inventory().Active()
	if item == nil || !item.State.Active() {
		return res, fmt.Errorf("%s: draw did not finish", spec.ID)
	}

	automatic := spec.Mode == weapon.Automatic
	melee := spec.Mode == weapon.MeleeStrike
	if automatic {
		rig.Input().EnqueueAt(input.TriggerDown, now)
	}
	for res.SprayFrames < maxFrames && res.Shots < cfg.Shots {
		if !automatic {
			if rig.TriggerDown() {
				rig.Input().EnqueueAt(input.TriggerUp, now)
			} else {
				rig.Input().EnqueueAt(input.TriggerDown, now)
			}
		}
		for _, ev := range frame() {
			switch p := ev.Payload.(type) {
			case FireEvent:
				res.Shots++
				res.AimPoints = append(res.AimPoints, p.AimPoint)
			case AnimationEvent:
				if melee && p.Clip == animation.ClipFire {
					res.Shots++
				}
			}
		}
		res.PeakPitch = math.Max(res.PeakPitch, rig.Camera().Pitch)
		res.SprayFrames++

		if !melee && item.State.Bullets() == 0 {
			break
		}
	}
	rig.Input().EnqueueAt(input.TriggerUp, now)
	frame()
	res.ReleaseCamera = rig.Camera()

	for !settled(item.State) && res.RecoveryFrames < maxFrames {
		frame()
		res.RecoveryFrames++
	}
	res.Recovered = settled(item.State)
	res.FinalCamera = rig.Camera()

	res.Hits = board.Hits()
	hits := 0
	for _, n := range res.Hits {
		hits += n
	}
	res.Misses = res.Shots - hits
	return res, nil
}

func settled(s *weapon.State) bool {
	basic, _, _ := s.Accumulated()
	return basic == 0 && s.RecoverProgress() == 0
}
