//go:build !linux

package utils

import "github.com/srand/jolt/node/pkg/log"

func DisableTHP(logger *log.Logger) {
	logger.Debug("Transparent huge pages are only managed on Linux")
}
