package volumes

import (
	"context"
	"strings"
)

// Card reader USB ids matched against lsusb output.
var cardReaderMarkers = []string{"05e3:0743", "cardreader", "card reader"}

func hasCardReader(lsusb string) bool {
	text := strings.ToLower(lsusb)
	for _, marker := range cardReaderMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// parseLsblk reads `lsblk -rnpo NAME,TYPE,MOUNTPOINT` output and returns the
// partitions that are not mounted. A disk is only offered when it has no
// partitions of its own.
func parseLsblk(out string) []string {
	type row struct {
		name, kind, mount string
	}
	var rows []row
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		r := row{name: fields[0], kind: fields[1]}
		if len(fields) > 2 {
			r.mount = fields[2]
		}
		rows = append(rows, r)
	}

	hasParts := map[string]bool{}
	for _, r := range rows {
		if r.kind != "part" {
			continue
		}
		for _, d := range rows {
			if d.kind == "disk" && strings.HasPrefix(r.name, d.name) {
				hasParts[d.name] = true
			}
		}
	}

	var devices []string
	for _, r := range rows {
		if r.mount != "" {
			continue
		}
		switch r.kind {
		case "part":
			devices = append(devices, r.name)
		case "disk":
			if !hasParts[r.name] {
				devices = append(devices, r.name)
			}
		}
	}
	return devices
}

// Devices exposes the mount helpers as methods for callers that take an interface.
type Devices struct{}

func (Devices) UnmountedDevices(ctx context.Context) ([]string, error) {
	return UnmountedDevices(ctx)
}

func (Devices) Mount(ctx context.Context, device string) (string, error) {
	return Mount(ctx, device)
}

func (Devices) CardReaderPresent(ctx context.Context) bool {
	return CardReaderPresent(ctx)
}
