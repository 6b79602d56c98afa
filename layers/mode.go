package layers

import (
	"fmt"
	"math/rand"
	"strings"
)

// AttentionMode selects what auxiliary signal, if any, conditions a
// recurrent core at every timestep.
type AttentionMode int

const (
	// ModeNone runs the recurrent core without conditioning.
	ModeNone AttentionMode = iota
	// Mode1D conditions every timestep on an embedded class label.
	Mode1D
	// Mode2D conditions every timestep on a reference image via
	// row-level attention.
	Mode2D
)

func (m AttentionMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case Mode1D:
		return "1d"
	case Mode2D:
		return "2d"
	default:
		return "unknown"
	}
}

// NetworkRole distinguishes generator and discriminator when naming
// their auxiliary inputs.
type NetworkRole int

const (
	RoleGenerator NetworkRole = iota
	RoleDiscriminator
)

func (r NetworkRole) suffix() string {
	if r == RoleGenerator {
		return "gen"
	}
	return "dis"
}

// ConfigurationError reports an invalid enumeration value supplied at
// startup. It always names the offending value.
type ConfigurationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be one of %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

var modeNames = []string{"none", "1d", "2d"}

// ParseMode converts a case-insensitive mode string into an
// AttentionMode. Any value outside {none, 1d, 2d} yields a
// ConfigurationError naming the offending value.
func ParseMode(field, value string) (AttentionMode, error) {
	switch strings.ToLower(value) {
	case "none":
		return ModeNone, nil
	case "1d":
		return Mode1D, nil
	case "2d":
		return Mode2D, nil
	default:
		return ModeNone, &ConfigurationError{Field: field, Value: value, Allowed: modeNames}
	}
}

// InputSpec declares a single named network input.
type InputSpec struct {
	Name    string
	Shape   []int
	Integer bool
}

// AuxInput returns the auxiliary input a network with the given mode and
// role must declare, or nil for ModeNone. The mapping is total over the
// enum.
func (m AttentionMode) AuxInput(role NetworkRole, imageRows, imageCols int) *InputSpec {
	switch m {
	case Mode1D:
		return &InputSpec{
			Name:    "image_class_" + role.suffix(),
			Shape:   []int{1},
			Integer: true,
		}
	case Mode2D:
		return &InputSpec{
			Name:  "ref_image_" + role.suffix(),
			Shape: []int{imageRows, imageCols, 1},
		}
	default:
		return nil
	}
}

// RequiresAux reports whether the mode demands an auxiliary input.
func (m AttentionMode) RequiresAux() bool {
	return m != ModeNone
}

// AuxWidth returns the number of extra features the mode appends to
// every recurrent step: the embedding width for Mode1D, the attention
// context width (the core's hidden size) for Mode2D, zero otherwise.
func (m AttentionMode) AuxWidth(embeddingDim, hiddenSize int) int {
	switch m {
	case Mode1D:
		return embeddingDim
	case Mode2D:
		return hiddenSize
	default:
		return 0
	}
}

// WrapCore applies the mode's attention strategy to a recurrent core.
// refDim is the per-row width of the 2D reference sequence; it is
// ignored for the other modes.
func (m AttentionMode) WrapCore(core *LSTM, refDim int, rng *rand.Rand) (RecurrentCore, error) {
	switch m {
	case ModeNone:
		return core, nil
	case Mode1D:
		return NewRecurrentAttention1D(core), nil
	case Mode2D:
		return NewRecurrentAttention2D(core, refDim, rng)
	default:
		return nil, &ConfigurationError{Field: "mode", Value: m.String(), Allowed: modeNames}
	}
}
