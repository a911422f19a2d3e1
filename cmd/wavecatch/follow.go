package main

import (
	"context"
	"errors"
	"math"
	"time"

	"wavecatch/internal/api"
	"wavecatch/internal/ipc"
)

const (
	followWait  = 20 * time.Second
	followLimit = 256
)

// errStopFollowing ends followUpdates without an error.
var errStopFollowing = errors.New("stop following")

// currentCursor returns the newest update sequence. A cursor past the end
// yields no events and the hub's latest sequence.
func currentCursor(ctx context.Context, client *ipc.Client) (uint64, error) {
	resp, err := client.Watch(ctx, ipc.WatchRequest{Since: math.MaxUint64, Limit: 1})
	if err != nil {
		return 0, err
	}
	return resp.Next, nil
}

// followUpdates long-polls the daemon from since and hands each update to fn
// until ctx ends or fn returns an error. errStopFollowing is swallowed.
func followUpdates(ctx context.Context, client *ipc.Client, since uint64, fn func(api.JobUpdate) error) error {
	for {
		resp, err := client.Watch(ctx, ipc.WatchRequest{
			Since:      since,
			Limit:      followLimit,
			WaitMillis: int(followWait / time.Millisecond),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		for _, update := range resp.Updates {
			if err := fn(update); err != nil {
				if errors.Is(err, errStopFollowing) {
					return nil
				}
				return err
			}
		}
		since = resp.Next
	}
}
