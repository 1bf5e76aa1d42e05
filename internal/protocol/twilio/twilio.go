// Package twilio defines the Twilio Media Streams JSON dialect (spec
// §6.2), adapted from the teacher's TwilioMediaMessage family in
// _examples/realtime-ai-realtime-ai/pkg/connection/twilio_connection.go.
package twilio

import (
	"encoding/json"
	"fmt"

	"github.com/voicebridge/bridge/internal/bridgeerr"
)

// Twilio's fixed media parameters (spec §6.2).
const (
	InputSampleRate  = 8000
	OutputSampleRate = 8000
	Channels         = 1
	MuLawFrameBytes  = 160 // 20ms at 8kHz mono 8-bit
)

// EventType is the `event` discriminator for all Twilio frames.
type EventType string

const (
	EventConnected EventType = "connected"
	EventStart     EventType = "start"
	EventMedia     EventType = "media"
	EventStop      EventType = "stop"
	EventDTMF      EventType = "dtmf"
	EventMark      EventType = "mark"
	EventClear     EventType = "clear"
)

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type StartPayload struct {
	AccountSid        string            `json:"accountSid"`
	StreamSid         string            `json:"streamSid"`
	CallSid           string            `json:"callSid"`
	Tracks            []string          `json:"tracks,omitempty"`
	MediaFormat       MediaFormat       `json:"mediaFormat"`
	CustomParameters  map[string]string `json:"customParameters,omitempty"`
}

type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"` // base64 µ-law
}

type StopPayload struct {
	AccountSid string `json:"accountSid,omitempty"`
	CallSid    string `json:"callSid,omitempty"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

type DTMFPayload struct {
	Digit string `json:"digit"`
}

// Frame is the envelope every Twilio message shares. Only the fields
// relevant to the event type are populated, mirroring the teacher's
// TwilioMediaMessage shape.
type Frame struct {
	Event          EventType    `json:"event"`
	SequenceNumber string       `json:"sequenceNumber,omitempty"`
	StreamSid      string       `json:"streamSid,omitempty"`
	Protocol       string       `json:"protocol,omitempty"`
	Version        string       `json:"version,omitempty"`
	Start          *StartPayload `json:"start,omitempty"`
	Media          *MediaPayload `json:"media,omitempty"`
	Stop           *StopPayload  `json:"stop,omitempty"`
	Mark           *MarkPayload  `json:"mark,omitempty"`
	DTMF           *DTMFPayload  `json:"dtmf,omitempty"`
}

// Validate applies decode-time validation (spec §9): refuse malformed
// frames at the edge.
func (f *Frame) Validate() error {
	if f.Event == "" {
		return fmt.Errorf("%w: missing event", bridgeerr.ErrProtocol)
	}
	switch f.Event {
	case EventStart:
		if f.Start == nil || f.Start.StreamSid == "" {
			return fmt.Errorf("%w: start frame missing streamSid", bridgeerr.ErrProtocol)
		}
	case EventMedia:
		if f.Media == nil || f.Media.Payload == "" {
			return fmt.Errorf("%w: media frame missing payload", bridgeerr.ErrProtocol)
		}
	case EventDTMF:
		if f.DTMF == nil || f.DTMF.Digit == "" {
			return fmt.Errorf("%w: dtmf frame missing digit", bridgeerr.ErrProtocol)
		}
	case EventMark:
		if f.Mark == nil || f.Mark.Name == "" {
			return fmt.Errorf("%w: mark frame missing name", bridgeerr.ErrProtocol)
		}
	}
	return nil
}

// ParseFrame decodes and validates an inbound Twilio frame.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", bridgeerr.ErrProtocol, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// --- Outbound builders (spec §6.2) ---

func Media(streamSid, payloadBase64 string) Frame {
	return Frame{Event: EventMedia, StreamSid: streamSid, Media: &MediaPayload{Payload: payloadBase64}}
}

func Mark(streamSid, name string) Frame {
	return Frame{Event: EventMark, StreamSid: streamSid, Mark: &MarkPayload{Name: name}}
}

func Clear(streamSid string) Frame {
	return Frame{Event: EventClear, StreamSid: streamSid}
}
