// Package device derives the opaque identifier of the machine the client
// runs on. The identifier is recomputed on demand and never persisted; it
// is sent with every authenticated request and feeds the key that wraps the
// user key at rest.
package device

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	"lukechampine.com/blake3"
)

// ErrDeviceID is returned when the machine identifier cannot be read.
// Login and sync cannot proceed without it.
var ErrDeviceID = errors.New("device id unavailable")

const separator = ":"

// Identifier computes the device id from a machine identifier and the
// hostname. Both sources are replaceable for tests.
type Identifier struct {
	machineID func(ctx context.Context) (string, error)
	hostname  func() (string, error)
}

// NewIdentifier returns an Identifier backed by the host's machine id
// (gopsutil) and os.Hostname.
func NewIdentifier() *Identifier {
	return &Identifier{
		machineID: host.HostIDWithContext,
		hostname:  os.Hostname,
	}
}

// DeviceID returns hex(BLAKE3(machine_id + ":" + hostname)).
func (i *Identifier) DeviceID(ctx context.Context) (string, error) {
	mid, err := i.machineID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: machine id: %w", ErrDeviceID, err)
	}
	mid = strings.TrimSpace(mid)
	if mid == "" {
		return "", fmt.Errorf("%w: machine id is empty", ErrDeviceID)
	}

	hn, err := i.hostname()
	if err != nil {
		return "", fmt.Errorf("%w: hostname: %w", ErrDeviceID, err)
	}

	sum := blake3.Sum256([]byte(mid + separator + hn))
	return hex.EncodeToString(sum[:]), nil
}
