// Package sid contains constants describing the C64 SID sound chip
// as seen from the CPU bus.
package sid

// DefaultBase is the usual bus address of the SID register window.
const DefaultBase = 0xd400

// RegisterWindow is the size of the memory mapped register window in bytes,
// covering register offsets 0x00 to 0x1c.
const RegisterWindow = 29

// Chip models.
const (
	Model6581 = 0
	Model8580 = 1
)

// RegisterNames maps a register offset to its common name,
// used for diagnostics and trace output.
var RegisterNames = [RegisterWindow]string{
	"Voice1FreqLo", "Voice1FreqHi",
	"Voice1PulseLo", "Voice1PulseHi",
	"Voice1Control", "Voice1AttackDecay", "Voice1SustainRelease",
	"Voice2FreqLo", "Voice2FreqHi",
	"Voice2PulseLo", "Voice2PulseHi",
	"Voice2Control", "Voice2AttackDecay", "Voice2SustainRelease",
	"Voice3FreqLo", "Voice3FreqHi",
	"Voice3PulseLo", "Voice3PulseHi",
	"Voice3Control", "Voice3AttackDecay", "Voice3SustainRelease",
	"FilterCutoffLo", "FilterCutoffHi",
	"FilterResonance", "FilterModeVolume",
	"PaddleX", "PaddleY",
	"Osc3Random", "Env3Output",
}

// RegisterName returns the name of a register offset inside the window.
func RegisterName(offset byte) string {
	if int(offset) >= len(RegisterNames) {
		return ""
	}
	return RegisterNames[offset]
}
