package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/voicebridge/bridge/internal/bridgeerr"
)

// LoadFile implements the Audio Handler's load-file path (spec §4.3,
// used by test/local clients that replay a recorded call instead of a
// live telephony platform): read a WAV container, decode to PCM16
// mono, resample to targetRate, split into chunkSize chunks padded to
// the 100ms floor, and return them ready for base64 encoding.
//
// Only WAV/PCM input is supported. No example repo in the retrieval
// pack demurs a container (the teacher only resamples frames it
// already has as raw PCM); this decoder is therefore hand-rolled
// against the WAV spec rather than grounded in pack code. See
// DESIGN.md.
func LoadFile(data []byte, targetRate, chunkSize int, floorMs int) ([][]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	pcm, sourceRate, channels, err := decodeWAV(data)
	if err != nil {
		return nil, err
	}

	if channels == 2 {
		pcm = downmixStereoToMono(pcm)
	} else if channels != 1 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", bridgeerr.ErrAudioFormat, channels)
	}

	if sourceRate != targetRate && len(pcm) > 0 {
		r, err := NewResampler(sourceRate, targetRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", bridgeerr.ErrAudioLoad, err)
		}
		defer r.Close()
		pcm, err = r.Resample(pcm)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", bridgeerr.ErrAudioLoad, err)
		}
	}

	floorBytes := BytesForDuration(floorMs, targetRate)
	return ChunkPCM(pcm, chunkSize, floorBytes), nil
}

// decodeWAV parses a canonical PCM WAV file, returning interleaved
// PCM16 sample data, its sample rate, and channel count.
func decodeWAV(data []byte) (pcm []byte, sampleRate int, channels int, err error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("%w: not a RIFF/WAVE container", bridgeerr.ErrAudioLoad)
	}

	offset := 12
	var fmtFound, dataFound bool
	var bitsPerSample uint16

	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if body+chunkSize > len(data) {
			break
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, 0, fmt.Errorf("%w: truncated fmt chunk", bridgeerr.ErrAudioLoad)
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return nil, 0, 0, fmt.Errorf("%w: %w", bridgeerr.ErrAudioFormat, unsupportedCodec(fmt.Sprintf("wav format code %d", audioFormat)))
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			fmtFound = true
		case "data":
			pcm = data[body : body+chunkSize]
			dataFound = true
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++ // chunks are word-aligned
		}
	}

	if !fmtFound || !dataFound {
		return nil, 0, 0, fmt.Errorf("%w: missing fmt or data chunk", bridgeerr.ErrAudioLoad)
	}
	if bitsPerSample != 16 {
		return nil, 0, 0, fmt.Errorf("%w: %w", bridgeerr.ErrAudioFormat, unsupportedCodec(fmt.Sprintf("%d-bit PCM", bitsPerSample)))
	}

	return pcm, sampleRate, channels, nil
}

func downmixStereoToMono(pcm []byte) []byte {
	n := len(pcm) / 4
	mono := make([]byte, n*2)
	for i := 0; i < n; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4 : i*4+2]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2 : i*4+4]))
		avg := int16((int32(l) + int32(r)) / 2)
		binary.LittleEndian.PutUint16(mono[i*2:i*2+2], uint16(avg))
	}
	return mono
}
