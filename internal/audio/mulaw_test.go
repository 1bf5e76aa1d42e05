package audio

import "testing"

func TestMuLawRoundTripBound(t *testing.T) {
	// µ-law is lossy; verify round-trip error stays within the codec's
	// known quantization bound rather than expecting exact equality.
	samples := []int16{0, 100, -100, 1000, -1000, 32000, -32000, 32767, -32768}
	for _, s := range samples {
		enc := MuLawEncode(s)
		dec := MuLawDecode(enc)
		diff := int(s) - int(dec)
		if diff < 0 {
			diff = -diff
		}
		// G.711 µ-law quantization error is bounded by roughly 2% of
		// full scale at high magnitudes; this stays well clear of that.
		if diff > 1100 {
			t.Errorf("MuLawEncode/Decode(%d) round-tripped to %d, diff %d exceeds bound", s, dec, diff)
		}
	}
}

func TestMuLawEncodeZeroIsSilenceByte(t *testing.T) {
	if got := MuLawEncode(0); got != SilenceByte {
		t.Errorf("MuLawEncode(0) = %#x, want SilenceByte %#x", got, SilenceByte)
	}
}

func TestMuLawBufRoundTrip(t *testing.T) {
	pcm := []byte{0, 0, 0x10, 0x27, 0xf0, 0xd8} // three samples incl. negative
	mulaw := PCM16ToMuLaw(pcm)
	if len(mulaw) != len(pcm)/2 {
		t.Fatalf("unexpected mulaw length %d", len(mulaw))
	}
	back := MuLawToPCM16(mulaw)
	if len(back) != len(pcm) {
		t.Fatalf("unexpected pcm length %d", len(back))
	}
}
