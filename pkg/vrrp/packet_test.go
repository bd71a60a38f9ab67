package vrrp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacket(t *testing.T) {
	ips := []net.IP{
		net.ParseIP("192.168.1.100").To4(),
		net.ParseIP("192.168.1.101").To4(),
	}

	pkt := NewPacket(1, 100, IntervalFromSeconds(1), ips)

	assert.EqualValues(t, 1, pkt.VRID)
	assert.EqualValues(t, 100, pkt.Priority)
	assert.Len(t, pkt.IPAddresses, 2)
}

func TestCodecMarshalUnmarshalRoundTrip(t *testing.T) {
	ips := []net.IP{
		net.ParseIP("192.168.1.100").To4(),
		net.ParseIP("192.168.1.101").To4(),
	}

	original := NewPacket(10, 150, IntervalFromSeconds(1), ips)

	var codec Codec
	data, err := codec.Marshal(original)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(data), minPacketLen)

	decoded, err := codec.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, original.VRID, decoded.VRID)
	assert.Equal(t, original.Priority, decoded.Priority)
	assert.Equal(t, original.Interval, decoded.Interval)
	require.Len(t, decoded.IPAddresses, len(original.IPAddresses))
	for i, ip := range decoded.IPAddresses {
		assert.True(t, ip.Equal(original.IPAddresses[i]))
	}
}

func TestCodecMarshalRejectsIPv6(t *testing.T) {
	pkt := NewPacket(1, 100, IntervalFromSeconds(1), []net.IP{net.ParseIP("::1")})

	var codec Codec
	_, err := codec.Marshal(pkt)
	assert.ErrorIs(t, err, ErrNotIPv4)
}

func TestCodecUnmarshalShortData(t *testing.T) {
	var codec Codec
	_, err := codec.Unmarshal([]byte{0x31, 0x01, 0x64})
	assert.ErrorIs(t, err, ErrPacketTooShort)
}

func TestCodecUnmarshalRejectsWrongVersion(t *testing.T) {
	var codec Codec
	data, err := codec.Marshal(NewPacket(1, 100, IntervalFromSeconds(1), nil))
	require.NoError(t, err)

	data[0] = (2 << 4) | typeAdvertisement // VRRPv2 discriminant

	_, err = codec.Unmarshal(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestCodecUnmarshalRejectsBadChecksum(t *testing.T) {
	var codec Codec
	data, err := codec.Marshal(NewPacket(1, 200, IntervalFromSeconds(1), []net.IP{net.ParseIP("10.0.0.1").To4()}))
	require.NoError(t, err)

	data[len(data)-1] ^= 0xFF

	_, err = codec.Unmarshal(data)
	assert.ErrorIs(t, err, ErrBadChecksum)
}

func TestCodecIntervalSurvivesTwelveBitField(t *testing.T) {
	var codec Codec
	pkt := NewPacket(1, 100, IntervalFromCentis(0xABC), nil)

	data, err := codec.Marshal(pkt)
	require.NoError(t, err)

	decoded, err := codec.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, Interval(0xABC), decoded.Interval)
}
