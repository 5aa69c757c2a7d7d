//go:build !linux

package volumes

import (
	"context"
	"errors"
)

var errUnsupported = errors.New("device mounting is only supported on linux")

func CardReaderPresent(ctx context.Context) bool {
	return false
}

func UnmountedDevices(ctx context.Context) ([]string, error) {
	return nil, nil
}

func Mount(ctx context.Context, device string) (string, error) {
	return "", errUnsupported
}
