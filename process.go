package detsim

import "github.com/joeycumines/detsim/internal/procif"

// Process is the unit of computation described in spec component H:
// owned exclusively by one Node under a unique name, handling inbound
// network messages, locally injected messages, and reporting a
// deterministic hash of its visible state.
type Process = procif.Process
