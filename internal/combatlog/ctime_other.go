//go:build !linux && !darwin && !windows

package combatlog

import (
	"os"
	"time"
)

func createdAt(info os.FileInfo) time.Time {
	return info.ModTime()
}
