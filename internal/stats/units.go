package stats

import "fmt"

var sizeUnits = []string{"", "K", "M", "G", "T", "P"}

// FormatSize renders a byte count as a binary-unit string with two
// decimal places, e.g. 1536 -> "1.50KB". The ladder stops at P: values
// past 1024 PB keep the P suffix rather than inventing a higher tier.
func FormatSize(bytes uint64) string {
	const factor = 1024.0

	value := float64(bytes)
	for _, unit := range sizeUnits[:len(sizeUnits)-1] {
		if value < factor {
			return fmt.Sprintf("%.2f%sB", value, unit)
		}
		value /= factor
	}
	return fmt.Sprintf("%.2f%sB", value, sizeUnits[len(sizeUnits)-1])
}
