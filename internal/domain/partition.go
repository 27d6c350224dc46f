package domain

import "context"

const (
	flightsPartitionPrefix = "flights_"
	chatPartitionPrefix    = "chat_"
)

// PartitionProvisioner owns the per-session physical storage. EnsurePartition
// is idempotent and safe under concurrent first access.
type PartitionProvisioner interface {
	EnsurePartition(ctx context.Context, sessionID string) error
	DropPartition(ctx context.Context, sessionID string) error
	ListPartitions(ctx context.Context) ([]string, error)
}

func FlightsPartition(sessionID string) (string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	return flightsPartitionPrefix + sessionID, nil
}

func ChatPartition(sessionID string) (string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	return chatPartitionPrefix + sessionID, nil
}

// SessionFromFlightsPartition reverses FlightsPartition.
func SessionFromFlightsPartition(name string) (string, bool) {
	if len(name) <= len(flightsPartitionPrefix) || name[:len(flightsPartitionPrefix)] != flightsPartitionPrefix {
		return "", false
	}
	id := name[len(flightsPartitionPrefix):]
	if ValidateSessionID(id) != nil {
		return "", false
	}
	return id, true
}
