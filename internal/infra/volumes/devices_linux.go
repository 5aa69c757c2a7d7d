//go:build linux

package volumes

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CardReaderPresent reports whether lsusb lists a known SD card reader.
func CardReaderPresent(ctx context.Context) bool {
	out, err := exec.CommandContext(ctx, "lsusb").Output()
	if err != nil {
		return false
	}
	return hasCardReader(string(out))
}

// UnmountedDevices lists block devices that could be mounted.
func UnmountedDevices(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "lsblk", "-rnpo", "NAME,TYPE,MOUNTPOINT").Output()
	if err != nil {
		return nil, fmt.Errorf("lsblk: %w", err)
	}
	return parseLsblk(string(out)), nil
}

// Mount asks udisks to mount device and returns its report.
func Mount(ctx context.Context, device string) (string, error) {
	out, err := exec.CommandContext(ctx, "udisksctl", "mount", "-b", device).CombinedOutput()
	msg := strings.TrimSpace(string(out))
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("mount %s: %s", device, msg)
	}
	return msg, nil
}
