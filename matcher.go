package miniptm

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"strings"

	"github.com/BeatGlow/miniptm/pci"
)

// AddrFilter decides which hardware addresses are accepted.
type AddrFilter interface {
	Contains(net.HardwareAddr) bool
}

// AllowList is a list of accepted hardware addresses.
type AllowList []net.HardwareAddr

// DefaultAllowList holds the addresses MiniPTM boards are programmed with.
var DefaultAllowList = AllowList{
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
	{0x00, 0xa0, 0xc9, 0x00, 0x00, 0x00},
}

// ParseAllowList parses addresses in any format net.ParseMAC accepts.
func ParseAllowList(addrs []string) (AllowList, error) {
	l := make(AllowList, 0, len(addrs))
	for _, s := range addrs {
		mac, err := net.ParseMAC(s)
		if err != nil {
			return nil, err
		}
		if len(mac) != 6 {
			return nil, fmt.Errorf("miniptm: %q is not an Ethernet address", s)
		}
		l = append(l, mac)
	}
	return l, nil
}

// Contains reports whether mac is byte for byte equal to an entry.
func (l AllowList) Contains(mac net.HardwareAddr) bool {
	for _, known := range l {
		if bytes.Equal(known, mac) {
			return true
		}
	}
	return false
}

// Strings returns the addresses in colon notation.
func (l AllowList) Strings() []string {
	s := make([]string, len(l))
	for i, mac := range l {
		s[i] = mac.String()
	}
	return s
}

func (l AllowList) String() string {
	return strings.Join(l.Strings(), ",")
}

// Matcher selects the controllers to drive.
type Matcher struct {
	ID     pci.ID
	Allow  AddrFilter
	Logger *slog.Logger
}

// FindCandidates yields every controller with the matcher ID. The sequence
// is lazy and may be ranged over again; each range enumerates the host
// afresh.
func (m *Matcher) FindCandidates(h Host) iter.Seq2[Candidate, error] {
	return h.Candidates(m.ID)
}

// Accept reports whether c has a network interface whose address is on
// the allow list.
func (m *Matcher) Accept(c Candidate) bool {
	log := m.Logger
	if log == nil {
		log = slog.Default()
	}

	mac, err := c.HardwareAddr()
	if err != nil || !validEtherAddr(mac) {
		log.Info("candidate is not an Ethernet device", "candidate", c.String(), "err", err)
		return false
	}
	if m.Allow == nil || !m.Allow.Contains(mac) {
		log.Info("MAC address not on the allow list", "candidate", c.String(), "mac", mac.String())
		return false
	}
	log.Info("MAC address match found", "candidate", c.String(), "mac", mac.String())
	return true
}

// validEtherAddr rejects multicast and all-zero addresses.
func validEtherAddr(mac net.HardwareAddr) bool {
	if len(mac) != 6 || mac[0]&0x01 != 0 {
		return false
	}
	for _, b := range mac {
		if b != 0 {
			return true
		}
	}
	return false
}
