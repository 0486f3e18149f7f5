package ingest

import "errors"

// ErrAgentNotFound is returned when no agent with the given id is
// connected.
var ErrAgentNotFound = errors.New("ingest: agent not found")
