package board

import "fmt"

// MuxAddr is the PCA9548 channel mux.
const MuxAddr = 0x70

// Channel is a PCA9548 channel mask.
type Channel byte

// Mux channels.
const (
	ChannelNone Channel = 0x00
	ChannelSFP1 Channel = 0x01
	ChannelSFP2 Channel = 0x02
	ChannelDPLL Channel = 0x08
	ChannelSFP3 Channel = 0x20
	ChannelSFP4 Channel = 0x40
)

var sfpChannels = [...]Channel{ChannelSFP1, ChannelSFP2, ChannelSFP3, ChannelSFP4}

// SFPChannel returns the mux channel of SFP cage n (1-4).
func SFPChannel(n int) (Channel, error) {
	if n < 1 || n > len(sfpChannels) {
		return ChannelNone, ErrInvalidSFP
	}
	return sfpChannels[n-1], nil
}

func (c Channel) String() string {
	switch c {
	case ChannelNone:
		return "none"
	case ChannelDPLL:
		return "DPLL"
	}
	for i, sc := range sfpChannels {
		if c == sc {
			return fmt.Sprintf("SFP%d", i+1)
		}
	}
	return fmt.Sprintf("Channel(%#02x)", byte(c))
}

// SelectChannel routes the bus to channel c. ChannelNone closes the mux.
func (b *Board) SelectChannel(c Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selectChannel(c)
}

// Channel returns the last selected channel.
func (b *Board) Channel() Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mux
}

func (b *Board) selectChannel(c Channel) error {
	if err := b.bus.Tx(MuxAddr, []byte{0x00, byte(c)}, nil); err != nil {
		b.muxSet = false
		b.paged = false
		return fmt.Errorf("board: select mux channel %s: %w", c, err)
	}
	if b.mux != c || !b.muxSet {
		b.log.Debug("mux channel selected", "channel", c)
		b.paged = false
	}
	b.mux = c
	b.muxSet = true
	return nil
}
