// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import "fmt"

// Disposition classifies how a [Trace] ended.
// The zero value means the hop did not terminate the trace.
type Disposition uint8

const (
	DispositionAccepted Disposition = iota + 1
	DispositionDeniedIn
	DispositionDeniedOut
	DispositionNoRoute
	DispositionNullRouted
	DispositionLoop
	DispositionNeighborUnreachable
	DispositionExitsNetwork
	DispositionDeliveredToSubnet
	DispositionInsufficientInfo
)

var dispositionNames = map[Disposition]string{
	DispositionAccepted:            "ACCEPTED",
	DispositionDeniedIn:            "DENIED_IN",
	DispositionDeniedOut:           "DENIED_OUT",
	DispositionNoRoute:             "NO_ROUTE",
	DispositionNullRouted:          "NULL_ROUTED",
	DispositionLoop:                "LOOP",
	DispositionNeighborUnreachable: "NEIGHBOR_UNREACHABLE",
	DispositionExitsNetwork:        "EXITS_NETWORK",
	DispositionDeliveredToSubnet:   "DELIVERED_TO_SUBNET",
	DispositionInsufficientInfo:    "INSUFFICIENT_INFO",
}

// Dispositions returns all dispositions in declaration order.
func Dispositions() []Disposition {
	return []Disposition{
		DispositionAccepted,
		DispositionDeniedIn,
		DispositionDeniedOut,
		DispositionNoRoute,
		DispositionNullRouted,
		DispositionLoop,
		DispositionNeighborUnreachable,
		DispositionExitsNetwork,
		DispositionDeliveredToSubnet,
		DispositionInsufficientInfo,
	}
}

func (d Disposition) String() string {
	if n, ok := dispositionNames[d]; ok {
		return n
	}
	return "NONE"
}

// IsSuccessful reports whether the flow reached its destination or left the
// modeled network. Only successful traces carry a return flow.
func (d Disposition) IsSuccessful() bool {
	switch d {
	case DispositionAccepted, DispositionDeliveredToSubnet, DispositionExitsNetwork:
		return true
	default:
		return false
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (d Disposition) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Disposition) UnmarshalText(b []byte) error {
	for k, v := range dispositionNames {
		if v == string(b) {
			*d = k
			return nil
		}
	}
	return fmt.Errorf("unknown disposition %q", string(b))
}

func (d Disposition) stepAction() StepAction {
	switch d {
	case DispositionAccepted:
		return ActionAccepted
	case DispositionDeniedIn, DispositionDeniedOut:
		return ActionDenied
	case DispositionNoRoute:
		return ActionNoRoute
	case DispositionNullRouted:
		return ActionNullRouted
	case DispositionLoop:
		return ActionLoop
	case DispositionNeighborUnreachable:
		return ActionNeighborUnreachable
	case DispositionExitsNetwork:
		return ActionExitsNetwork
	case DispositionDeliveredToSubnet:
		return ActionDeliveredToSubnet
	case DispositionInsufficientInfo:
		return ActionInsufficientInfo
	default:
		return ""
	}
}
