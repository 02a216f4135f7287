package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sizeRe = regexp.MustCompile(`^(0|[1-9][0-9]*) ?([KMGTPE]i?)?B?$`)

var sizeUnits = map[string]int64{
	"":   1,
	"K":  1000,
	"M":  1000 * 1000,
	"G":  1000 * 1000 * 1000,
	"T":  1000 * 1000 * 1000 * 1000,
	"P":  1000 * 1000 * 1000 * 1000 * 1000,
	"E":  1000 * 1000 * 1000 * 1000 * 1000 * 1000,
	"Ki": 1 << 10,
	"Mi": 1 << 20,
	"Gi": 1 << 30,
	"Ti": 1 << 40,
	"Pi": 1 << 50,
	"Ei": 1 << 60,
}

// ParseSize parses human readable sizes like "64MiB", "10 GB" or "512".
func ParseSize(size string) (int64, error) {
	size = strings.TrimSpace(size)

	parts := sizeRe.FindStringSubmatch(size)
	if parts == nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, size)
	}

	value, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, size)
	}

	unit := sizeUnits[parts[2]]
	if value > math.MaxInt64/unit {
		return 0, fmt.Errorf("%w: %v overflows", ErrParse, size)
	}

	return value * unit, nil
}

// ParseMessageSize parses a size that must fit a gRPC message limit.
func ParseMessageSize(size string) (int, error) {
	value, err := ParseSize(size)
	if err != nil {
		return 0, err
	}
	if value <= 0 || value > math.MaxInt32 {
		return 0, fmt.Errorf("%w: message size %v out of range", ErrParse, size)
	}
	return int(value), nil
}

func HumanByteSize(byteSize int64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

	index := 0
	size := float64(byteSize)
	for size > 1024 && index < len(units)-1 {
		size /= 1024
		index++
	}

	switch {
	case index <= 1:
		return fmt.Sprintf("%.0f%s", size, units[index])
	case index == 2:
		return fmt.Sprintf("%.1f%s", size, units[index])
	default:
		return fmt.Sprintf("%.2f%s", size, units[index])
	}
}
