package impulse

import (
	"fmt"
	"math"
	"os"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/akmonengine/impulse/linalg"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGridCellSize = 4.0
	DefaultGridCells    = 1024
)

// Settings gathers the tunables of a World.
type Settings struct {
	// Gravity acceleration (m/s²)
	Gravity          mgl64.Vec3 `yaml:"gravity,flow"`
	SolverIterations int        `yaml:"solver_iterations"`

	ContactBaumgarte float64 `yaml:"contact_baumgarte"`
	ContactSlop      float64 `yaml:"contact_slop"`
	JointBaumgarte   float64 `yaml:"joint_baumgarte"`
	JointSlop        float64 `yaml:"joint_slop"`
	WarmStartLimit   float64 `yaml:"warm_start_limit"`
	ClampFriction    bool    `yaml:"clamp_friction"`

	// MaxAngularSpeed is given to bodies added without their own limit (rad/s)
	MaxAngularSpeed float64 `yaml:"max_angular_speed"`

	GridCellSize float64 `yaml:"grid_cell_size"`
	GridCells    int     `yaml:"grid_cells"`
}

func DefaultSettings() *Settings {
	params := constraint.DefaultParams()

	return &Settings{
		Gravity:          mgl64.Vec3{0, -10, 0},
		SolverIterations: linalg.DefaultIterations,
		ContactBaumgarte: params.ContactBaumgarte,
		ContactSlop:      params.ContactSlop,
		JointBaumgarte:   params.JointBaumgarte,
		JointSlop:        params.JointSlop,
		WarmStartLimit:   params.WarmStartLimit,
		ClampFriction:    params.ClampFriction,
		MaxAngularSpeed:  actor.DefaultMaxAngularSpeed,
		GridCellSize:     DefaultGridCellSize,
		GridCells:        DefaultGridCells,
	}
}

// LoadSettings reads a YAML file on top of the defaults
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func SaveSettings(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Settings) Validate() error {
	for _, g := range s.Gravity {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("%w: gravity %v is not finite", ErrInvalidSettings, s.Gravity)
		}
	}

	switch {
	case s.SolverIterations < 1:
		return fmt.Errorf("%w: solver_iterations must be at least 1, got %d", ErrInvalidSettings, s.SolverIterations)
	case s.ContactBaumgarte < 0 || s.JointBaumgarte < 0:
		return fmt.Errorf("%w: baumgarte factors must not be negative", ErrInvalidSettings)
	case s.ContactSlop < 0 || s.JointSlop < 0:
		return fmt.Errorf("%w: slop must not be negative", ErrInvalidSettings)
	case s.WarmStartLimit < 0:
		return fmt.Errorf("%w: warm_start_limit must not be negative, got %v", ErrInvalidSettings, s.WarmStartLimit)
	case s.MaxAngularSpeed <= 0:
		return fmt.Errorf("%w: max_angular_speed must be positive, got %v", ErrInvalidSettings, s.MaxAngularSpeed)
	case s.GridCellSize <= 0:
		return fmt.Errorf("%w: grid_cell_size must be positive, got %v", ErrInvalidSettings, s.GridCellSize)
	case s.GridCells < 1:
		return fmt.Errorf("%w: grid_cells must be at least 1, got %d", ErrInvalidSettings, s.GridCells)
	}

	return nil
}

// ConstraintParams projects the solver settings for the constraint arena
func (s *Settings) ConstraintParams() constraint.Params {
	return constraint.Params{
		ContactBaumgarte: s.ContactBaumgarte,
		ContactSlop:      s.ContactSlop,
		JointBaumgarte:   s.JointBaumgarte,
		JointSlop:        s.JointSlop,
		WarmStartLimit:   s.WarmStartLimit,
		ClampFriction:    s.ClampFriction,
	}
}
