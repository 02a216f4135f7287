//go:build linux

package utils

import (
	"github.com/srand/jolt/node/pkg/log"
	"golang.org/x/sys/unix"
)

// DisableTHP disables transparent huge pages for the process. Long running
// nodes holding many cached values otherwise see their RSS creep upwards.
func DisableTHP(logger *log.Logger) {
	logger.Info("Disabling transparent huge pages")
	if err := unix.Prctl(unix.PR_SET_THP_DISABLE, 1, 0, 0, 0); err != nil {
		logger.Warn("Failed to disable transparent huge pages:", err)
	}
}
