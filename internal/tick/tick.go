package tick

import (
	"fmt"

	"github.com/talgya/emergence/internal/environment"
)

// FormatTick renders a tick number as a human-readable simulation
// timestamp, for logs and the observer status surface.
func FormatTick(t uint64) string {
	clock := environment.DeriveClock(t)
	day := (t / environment.TicksPerDay) % 30
	seasonNames := [4]string{"Spring", "Summer", "Autumn", "Winter"}
	return fmt.Sprintf("%s Day %d, Hour %d, Era %d", seasonNames[clock.Season], day+1, clock.TimeOfDay, clock.Era)
}
