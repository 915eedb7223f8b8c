// Package devices provides the read-only identifier to hardware
// address table consumed by the wake authority.
package devices

import (
	"fmt"
	"net"
)

// Table resolves a logical identifier to exactly one hardware address.
// Implementations must be safe for concurrent use.
type Table interface {
	Resolve(identifier string) (net.HardwareAddr, bool)
}

// StaticTable is an immutable Table loaded once at startup. Adding or
// changing a device requires a restart.
type StaticTable struct {
	records map[string]net.HardwareAddr
}

// NewStaticTable builds a table from identifier to MAC address string
// mappings, parsing every address up front so resolution can never
// yield a partial result.
func NewStaticTable(mappings map[string]string) (*StaticTable, error) {
	records := make(map[string]net.HardwareAddr, len(mappings))
	for identifier, macStr := range mappings {
		mac, err := net.ParseMAC(macStr)
		if err != nil {
			return nil, fmt.Errorf("invalid hardware address %q for identifier %q: %w", macStr, identifier, err)
		}
		records[identifier] = mac
	}
	return &StaticTable{records: records}, nil
}

// Resolve looks up the hardware address for an identifier.
func (t *StaticTable) Resolve(identifier string) (net.HardwareAddr, bool) {
	mac, ok := t.records[identifier]
	return mac, ok
}

// Len returns the number of registered devices.
func (t *StaticTable) Len() int {
	return len(t.records)
}
