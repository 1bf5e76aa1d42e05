// Package audio implements all codec, sample-rate, and framing work for
// the bridge (spec §4.3): µ-law↔PCM16 conversion, resampling, chunking,
// and base64 framing. The µ-law lookup tables and conversion functions
// are adapted near-verbatim from the teacher's
// _examples/realtime-ai-realtime-ai/pkg/audio/mulaw.go — this is
// exactly the "256-entry lookup table each way" spec §9 asks for, and
// behavior should not drift from a known-good G.711 implementation.
package audio

// MuLaw codec constants (ITU-T G.711).
const (
	muLawBias      = 0x84
	muLawClip      = 32635
	muLawSegShift  = 4
	muLawQuantMask = 0x0f
)

var muLawDecompressTable = [256]int16{
	-32124, -31100, -30076, -29052, -28028, -27004, -25980, -24956,
	-23932, -22908, -21884, -20860, -19836, -18812, -17788, -16764,
	-15996, -15484, -14972, -14460, -13948, -13436, -12924, -12412,
	-11900, -11388, -10876, -10364, -9852, -9340, -8828, -8316,
	-7932, -7676, -7420, -7164, -6908, -6652, -6396, -6140,
	-5884, -5628, -5372, -5116, -4860, -4604, -4348, -4092,
	-3900, -3772, -3644, -3516, -3388, -3260, -3132, -3004,
	-2876, -2748, -2620, -2492, -2364, -2236, -2108, -1980,
	-1884, -1820, -1756, -1692, -1628, -1564, -1500, -1436,
	-1372, -1308, -1244, -1180, -1116, -1052, -988, -924,
	-876, -844, -812, -780, -748, -716, -684, -652,
	-620, -588, -556, -524, -492, -460, -428, -396,
	-372, -356, -340, -324, -308, -292, -276, -260,
	-244, -228, -212, -196, -180, -164, -148, -132,
	-120, -112, -104, -96, -88, -80, -72, -64,
	-56, -48, -40, -32, -24, -16, -8, 0,
	32124, 31100, 30076, 29052, 28028, 27004, 25980, 24956,
	23932, 22908, 21884, 20860, 19836, 18812, 17788, 16764,
	15996, 15484, 14972, 14460, 13948, 13436, 12924, 12412,
	11900, 11388, 10876, 10364, 9852, 9340, 8828, 8316,
	7932, 7676, 7420, 7164, 6908, 6652, 6396, 6140,
	5884, 5628, 5372, 5116, 4860, 4604, 4348, 4092,
	3900, 3772, 3644, 3516, 3388, 3260, 3132, 3004,
	2876, 2748, 2620, 2492, 2364, 2236, 2108, 1980,
	1884, 1820, 1756, 1692, 1628, 1564, 1500, 1436,
	1372, 1308, 1244, 1180, 1116, 1052, 988, 924,
	876, 844, 812, 780, 748, 716, 684, 652,
	620, 588, 556, 524, 492, 460, 428, 396,
	372, 356, 340, 324, 308, 292, 276, 260,
	244, 228, 212, 196, 180, 164, 148, 132,
	120, 112, 104, 96, 88, 80, 72, 64,
	56, 48, 40, 32, 24, 16, 8, 0,
}

var muLawSegmentTable = [8]int16{0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF, 0x3FFF, 0x7FFF}

// SilenceByte is the µ-law codeword this bridge uses for padding, the
// resolution of spec §9 Open Question 2 (the choice is inconsistent
// across the source this spec was distilled from). Decision: 0xFF,
// because it is exactly what MuLawEncode produces for PCM16 zero, so
// padding bytes decode back to true digital silence rather than an
// arbitrary convention value. See DESIGN.md.
const SilenceByte byte = 0xFF

// MuLawDecode converts a single µ-law byte to a 16-bit signed PCM sample.
func MuLawDecode(mulaw byte) int16 {
	return muLawDecompressTable[mulaw]
}

// MuLawEncode converts a 16-bit signed PCM sample to µ-law.
func MuLawEncode(pcm int16) byte {
	sign := (pcm >> 8) & 0x80
	if sign != 0 {
		if pcm < -muLawClip {
			pcm = -muLawClip
		}
		pcm = -pcm
	}
	if pcm > muLawClip {
		pcm = muLawClip
	}
	pcm += muLawBias

	segment := 7
	for i := 0; i < 8; i++ {
		if pcm <= muLawSegmentTable[i] {
			segment = i
			break
		}
	}

	return byte(^(sign | (int16(segment) << muLawSegShift) | ((pcm >> (segment + 3)) & muLawQuantMask)))
}

// MuLawDecodeBuf converts µ-law encoded bytes to little-endian 16-bit
// signed PCM. dst must be 2x the length of src.
func MuLawDecodeBuf(src []byte, dst []byte) {
	for i, b := range src {
		sample := muLawDecompressTable[b]
		dst[i*2] = byte(sample)
		dst[i*2+1] = byte(sample >> 8)
	}
}

// MuLawEncodeBuf converts little-endian 16-bit signed PCM to µ-law.
// dst must be half the length of src.
func MuLawEncodeBuf(src []byte, dst []byte) {
	numSamples := len(src) / 2
	for i := 0; i < numSamples; i++ {
		sample := int16(src[i*2]) | (int16(src[i*2+1]) << 8)
		dst[i] = MuLawEncode(sample)
	}
}

// MuLawToPCM16 decodes µ-law bytes to a new PCM16 byte slice.
func MuLawToPCM16(mulaw []byte) []byte {
	pcm := make([]byte, len(mulaw)*2)
	MuLawDecodeBuf(mulaw, pcm)
	return pcm
}

// PCM16ToMuLaw encodes PCM16 bytes to a new µ-law byte slice.
func PCM16ToMuLaw(pcm []byte) []byte {
	mulaw := make([]byte, len(pcm)/2)
	MuLawEncodeBuf(pcm, mulaw)
	return mulaw
}
