package snowflake

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// A Snowflake ID packs three fields into the low 63 bits of an int64:
// 41 bits of milliseconds since a custom epoch, 10 bits of machine ID
// and 12 bits of per-millisecond sequence.
const (
	// Epoch is 2024-01-01 00:00:00 UTC in milliseconds.
	Epoch int64 = 1704067200000

	machineIDBits = 10
	sequenceBits  = 12

	// MaxMachineID is the highest valid machine ID (1023).
	MaxMachineID = (1 << machineIDBits) - 1
	maxSequence  = (1 << sequenceBits) - 1

	timestampShift = machineIDBits + sequenceBits
	machineIDShift = sequenceBits
)

// ErrClockRegression is returned when the wall clock reports a time earlier
// than the timestamp of the last issued ID. The call fails rather than risk
// duplicate IDs; callers may wait and retry.
var ErrClockRegression = errors.New("clock moved backwards")

// Generator issues unique, time-ordered 64-bit IDs. A single instance must be
// shared by every goroutine using the same machine ID; two independent
// instances with one machine ID can collide.
type Generator struct {
	mu            sync.Mutex
	machineID     int64
	sequence      int64
	lastTimestamp int64

	// now reports wall-clock milliseconds. Overridable in tests.
	now func() int64
}

// New creates a Generator for the given machine ID (0-1023).
func New(machineID int64) (*Generator, error) {
	if machineID < 0 || machineID > MaxMachineID {
		return nil, fmt.Errorf("machine id must be between 0 and %d, got %d", MaxMachineID, machineID)
	}
	return &Generator{
		machineID:     machineID,
		lastTimestamp: -1,
		now:           func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// MachineID returns the configured machine ID.
func (g *Generator) MachineID() int64 {
	return g.machineID
}

// Next returns the next unique ID. IDs from one generator are strictly
// increasing. If the sequence for the current millisecond is exhausted, Next
// waits for the next millisecond; this wait is bounded and not observable as
// an error. If the clock has moved backwards it fails with ErrClockRegression.
func (g *Generator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	timestamp := g.now()
	if timestamp < g.lastTimestamp {
		return 0, fmt.Errorf("%w: refusing to generate id for %dms", ErrClockRegression, g.lastTimestamp-timestamp)
	}

	if timestamp == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence exhausted for this millisecond.
			timestamp = g.waitNextMillis(timestamp)
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = timestamp

	id := (timestamp-Epoch)<<timestampShift |
		g.machineID<<machineIDShift |
		g.sequence
	return id, nil
}

// waitNextMillis spins until the clock advances past the given timestamp.
func (g *Generator) waitNextMillis(last int64) int64 {
	timestamp := g.now()
	for timestamp <= last {
		timestamp = g.now()
	}
	return timestamp
}

// Parts holds the decoded fields of an ID.
type Parts struct {
	Timestamp int64 `json:"timestamp"` // milliseconds since the Unix epoch
	MachineID int64 `json:"machine_id"`
	Sequence  int64 `json:"sequence"`
}

// Time returns the issuance time of the decoded ID.
func (p Parts) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Decode splits an ID into its timestamp, machine ID and sequence fields.
func Decode(id int64) Parts {
	return Parts{
		Timestamp: (id >> timestampShift) + Epoch,
		MachineID: (id >> machineIDShift) & MaxMachineID,
		Sequence:  id & maxSequence,
	}
}
