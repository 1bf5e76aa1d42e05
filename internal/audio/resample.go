package audio

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// Resampler wraps an astiav software resample context for mono PCM16
// conversion between arbitrary sample rates. Adapted from the teacher's
// pkg/audio/resample.go, trimmed to the mono-only case this bridge
// needs (AudioCodes 16kHz↔24kHz, Twilio 8kHz↔24kHz) and given
// idiomatic error messages/comments in place of the original's.
type Resampler struct {
	ctx      *astiav.SoftwareResampleContext
	inFrame  *astiav.Frame
	outFrame *astiav.Frame
	inRate   int
	outRate  int
}

// NewResampler builds a mono PCM16 resampler from inRate to outRate.
func NewResampler(inRate, outRate int) (*Resampler, error) {
	if inRate <= 0 {
		return nil, fmt.Errorf("audio: invalid input sample rate %d", inRate)
	}
	if outRate <= 0 {
		return nil, fmt.Errorf("audio: invalid output sample rate %d", outRate)
	}

	r := &Resampler{inRate: inRate, outRate: outRate}

	r.ctx = astiav.AllocSoftwareResampleContext()
	if r.ctx == nil {
		return nil, fmt.Errorf("audio: failed to allocate resample context")
	}
	r.inFrame = astiav.AllocFrame()
	if r.inFrame == nil {
		r.Close()
		return nil, fmt.Errorf("audio: failed to allocate input frame")
	}
	r.outFrame = astiav.AllocFrame()
	if r.outFrame == nil {
		r.Close()
		return nil, fmt.Errorf("audio: failed to allocate output frame")
	}

	return r, nil
}

// Close frees the underlying astiav resources. Safe to call more than
// once.
func (r *Resampler) Close() {
	if r.ctx != nil {
		r.ctx.Free()
		r.ctx = nil
	}
	if r.inFrame != nil {
		r.inFrame.Free()
		r.inFrame = nil
	}
	if r.outFrame != nil {
		r.outFrame.Free()
		r.outFrame = nil
	}
}

// Resample converts mono little-endian PCM16 data at r.inRate to mono
// PCM16 at r.outRate.
func (r *Resampler) Resample(pcm []byte) ([]byte, error) {
	const align = 0
	const bytesPerSample = 2

	if len(pcm) == 0 {
		return nil, fmt.Errorf("audio: empty input to resample")
	}

	numSamples := len(pcm) / bytesPerSample
	if numSamples == 0 {
		return nil, fmt.Errorf("audio: input shorter than one sample")
	}

	r.inFrame.Unref()
	r.outFrame.Unref()

	r.inFrame.SetChannelLayout(astiav.ChannelLayoutMono)
	r.inFrame.SetSampleFormat(astiav.SampleFormatS16)
	r.inFrame.SetSampleRate(r.inRate)
	r.inFrame.SetNbSamples(numSamples)

	r.outFrame.SetChannelLayout(astiav.ChannelLayoutMono)
	r.outFrame.SetSampleFormat(astiav.SampleFormatS16)
	r.outFrame.SetSampleRate(r.outRate)

	outNumSamples := (numSamples * r.outRate) / r.inRate
	if outNumSamples == 0 {
		outNumSamples = 1
	}
	r.outFrame.SetNbSamples(outNumSamples)

	if err := r.inFrame.AllocBuffer(align); err != nil {
		return nil, fmt.Errorf("audio: allocating input buffer: %w", err)
	}
	if err := r.outFrame.AllocBuffer(align); err != nil {
		return nil, fmt.Errorf("audio: allocating output buffer: %w", err)
	}
	if err := r.inFrame.MakeWritable(); err != nil {
		return nil, fmt.Errorf("audio: making input frame writable: %w", err)
	}

	bufSize, err := r.inFrame.SamplesBufferSize(align)
	if err != nil {
		return nil, fmt.Errorf("audio: reading input buffer size: %w", err)
	}

	in := pcm
	if len(pcm) < bufSize {
		in = make([]byte, bufSize)
		copy(in, pcm)
	}

	if err := r.inFrame.Data().SetBytes(in[:bufSize], align); err != nil {
		return nil, fmt.Errorf("audio: setting input frame data: %w", err)
	}

	if err := r.ctx.ConvertFrame(r.inFrame, r.outFrame); err != nil {
		return nil, fmt.Errorf("audio: converting frame: %w", err)
	}

	out, err := r.outFrame.Data().Bytes(align)
	if err != nil {
		return nil, fmt.Errorf("audio: reading output frame data: %w", err)
	}

	return out, nil
}
