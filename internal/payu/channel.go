package payu

import (
	"fmt"
	"sort"
)

// Channel is a payment method code understood by the gateway (pay_type).
type Channel string

const (
	ChannelCS       Channel = "cs"
	ChannelMBank    Channel = "mp"
	ChannelKB       Channel = "kb"
	ChannelRF       Channel = "rf"
	ChannelGE       Channel = "pg"
	ChannelSberbank Channel = "pv"
	ChannelFio      Channel = "pf"
	ChannelEra      Channel = "era"
	ChannelCSOB     Channel = "cb"
	ChannelCard     Channel = "c"
	ChannelTest     Channel = "t"
)

var channelNames = map[Channel]string{
	ChannelCS:       "PLATBA 24 - Česká spořitelna",
	ChannelMBank:    "mPeníze - mBank",
	ChannelKB:       "MojePlatba - Komerční banka",
	ChannelRF:       "ePlatba - Raiffeisenbank",
	ChannelGE:       "GE Money Bank",
	ChannelSberbank: "Sberbank",
	ChannelFio:      "Fio banka",
	ChannelEra:      "Era/Poštovní spořitelna",
	ChannelCSOB:     "ČSOB a.s.",
	ChannelCard:     "Platba kartou online",
	ChannelTest:     "Testovací platba",
}

// Valid reports whether c is one of the gateway's channels.
func (c Channel) Valid() bool {
	_, ok := channelNames[c]
	return ok
}

// Name returns the human readable channel name, or "" for unknown codes.
func (c Channel) Name() string {
	return channelNames[c]
}

// ParseChannel converts a raw pay_type code into a Channel.
func ParseChannel(code string) (Channel, error) {
	c := Channel(code)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown payment channel %q", ErrValidation, code)
	}
	return c, nil
}

// Channels lists every supported channel, sorted by code.
func Channels() []Channel {
	out := make([]Channel, 0, len(channelNames))
	for c := range channelNames {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
