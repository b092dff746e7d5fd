package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"botfoundation/clients"
	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/services/cooldown"
)

// NewPresenceRotationJob sets the agent's activity to a uniformly chosen entry
// of activities on every firing. pick defaults to math/rand.
func NewPresenceRotationJob(
	setter clients.PresenceSetter,
	period time.Duration,
	activities []string,
	pick func(n int) int,
) (*Job, error) {
	if len(activities) == 0 {
		return nil, fmt.Errorf("presence rotation needs at least one activity")
	}
	if pick == nil {
		pick = rand.Intn
	}

	rotation := make([]string, len(activities))
	copy(rotation, activities)

	return &Job{
		Name:   "presence_rotation",
		Period: period,
		Run: func(ctx context.Context) error {
			activity := rotation[pick(len(rotation))]
			if err := setter.SetPresence(ctx, models.Presence{Activity: activity}); err != nil {
				return fmt.Errorf("failed to rotate presence to %q: %w", activity, err)
			}
			log.Debug("📋 Rotated presence", "activity", activity)
			return nil
		},
	}, nil
}

// NewCooldownSweepJob drops expired cooldown buckets
func NewCooldownSweepJob(tracker *cooldown.Tracker, period time.Duration) *Job {
	return &Job{
		Name:   "cooldown_sweep",
		Period: period,
		Run: func(ctx context.Context) error {
			if removed := tracker.Sweep(); removed > 0 {
				log.Debug("📋 Swept expired cooldowns", "removed", removed)
			}
			return nil
		},
	}
}
