package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/transcribersofreddit/torcore/pkg/storage"
)

// ActivePortsKey is the store set holding every reserved heartbeat port.
const ActivePortsKey = "active_heartbeat_ports"

// ErrNoFreePort is returned when every port in the range is reserved.
var ErrNoFreePort = errors.New("no free heartbeat port")

// ReservePort claims the first port in [start, end] not already in the
// store set. The set add is the claim, so concurrent bots never receive
// the same port.
func ReservePort(ctx context.Context, store storage.Store, start, end int) (int, error) {
	for port := start; port <= end; port++ {
		added, err := store.SAdd(ctx, ActivePortsKey, strconv.Itoa(port))
		if err != nil {
			return 0, fmt.Errorf("failed to reserve heartbeat port %d: %w", port, err)
		}
		if added {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w in range %d-%d", ErrNoFreePort, start, end)
}

// ReleasePort returns port to the pool.
func ReleasePort(ctx context.Context, store storage.Store, port int) error {
	if err := store.SRem(ctx, ActivePortsKey, strconv.Itoa(port)); err != nil {
		return fmt.Errorf("failed to release heartbeat port %d: %w", port, err)
	}
	return nil
}
