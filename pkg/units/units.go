// Package units provides binary size multipliers and conversions for
// diagnostics output.
package units

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// ToMiB converts a byte count to mebibytes.
func ToMiB(n uint64) float64 {
	return float64(n) / MiB
}
