package file

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/timefmt"
)

// ResolveDir returns the directory that holds channel's logs at time now.
// With partitioning disabled every file lives directly in base; otherwise the
// network, channel and time bucket components are appended in that order as
// enabled.
func ResolveDir(base, network, channel string, now time.Time, d config.Directories) string {
	parts := []string{base}
	if d.Enabled {
		if d.Network && network != "" {
			parts = append(parts, pathSafe(network))
		}
		if d.Channel {
			parts = append(parts, pathSafe(channel))
		}
		if d.Timestamp {
			if bucket := timefmt.Format(d.TimestampFormat, now); bucket != "" {
				parts = append(parts, pathSafe(bucket))
			}
		}
	}
	return filepath.Join(parts...)
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// FileName returns the base name of a log file. rotationKey is empty when
// rotation is disabled.
func FileName(channel string, f model.Format, rotationKey string) string {
	if rotationKey == "" {
		return pathSafe(channel) + "." + f.Ext()
	}
	return pathSafe(channel) + "." + pathSafe(rotationKey) + "." + f.Ext()
}

// RotationKey computes the filename timestamp for channel settings cs.
func RotationKey(cs config.ChannelSettings, now time.Time) string {
	if !cs.RotateLogs {
		return ""
	}
	return timefmt.Format(cs.FilenameTimestamp, now)
}

var unsafePath = strings.NewReplacer("/", "_", `\`, "_", "\x00", "_")

// pathSafe keeps a name inside a single path component.
func pathSafe(name string) string {
	name = unsafePath.Replace(name)
	if name == "." || name == ".." {
		return "_"
	}
	return name
}
