// Package audiocodes defines the AudioCodes VoiceAI Connect JSON dialect
// (spec §6.1). No teacher or pack example implements this dialect
// directly; these types are new code, modeled on the discriminated-union
// JSON shape the teacher uses for Twilio
// (_examples/realtime-ai-realtime-ai/pkg/connection/twilio_connection.go)
// and on the literal field names documented in the spec and in
// original_source/opusagent/models/__init__.py.
package audiocodes

import (
	"encoding/json"
	"fmt"

	"github.com/voicebridge/bridge/internal/bridgeerr"
)

// FrameType is the `type` discriminator for all AudioCodes frames.
type FrameType string

const (
	TypeSessionInitiate     FrameType = "session.initiate"
	TypeSessionResume       FrameType = "session.resume"
	TypeSessionEnd          FrameType = "session.end"
	TypeSessionAccepted     FrameType = "session.accepted"
	TypeSessionResumed      FrameType = "session.resumed"
	TypeSessionError        FrameType = "session.error"
	TypeConnectionValidate  FrameType = "connection.validate"
	TypeConnectionValidated FrameType = "connection.validated"
	TypeUserStreamStart     FrameType = "userStream.start"
	TypeUserStreamStarted   FrameType = "userStream.started"
	TypeUserStreamStop      FrameType = "userStream.stop"
	TypeUserStreamStopped   FrameType = "userStream.stopped"
	TypeUserStreamChunk     FrameType = "userStream.chunk"
	TypeUserStreamHypothesis FrameType = "userStream.hypothesis"
	TypeUserStreamCommitted FrameType = "userStream.committed"
	TypeSpeechStarted       FrameType = "userStream.speech.started"
	TypeSpeechStopped       FrameType = "userStream.speech.stopped"
	TypePlayStreamStart     FrameType = "playStream.start"
	TypePlayStreamChunk     FrameType = "playStream.chunk"
	TypePlayStreamStop      FrameType = "playStream.stop"
	TypeActivities          FrameType = "activities"
)

// Activity is one entry of an `activities` frame's activities[] array
// (§6.1): DTMF, hangup, or an opaque custom object the bridge forwards
// without interpretation (§1 content-agnosticism).
type Activity struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Frame is the envelope every AudioCodes message shares: a type
// discriminator plus conversationId, with the payload fields varying by
// type (spec table in §6.1).
type Frame struct {
	Type                FrameType  `json:"type"`
	ConversationID       string     `json:"conversationId"`
	BotName             string     `json:"botName,omitempty"`
	Caller              string     `json:"caller,omitempty"`
	ExpectAudioMessages bool       `json:"expectAudioMessages,omitempty"`
	SupportedMediaFormats []string `json:"supportedMediaFormats,omitempty"`
	MediaFormat         string     `json:"mediaFormat,omitempty"`
	ReasonCode          string     `json:"reasonCode,omitempty"`
	Reason              string     `json:"reason,omitempty"`
	AudioChunk          string     `json:"audioChunk,omitempty"`
	Activities          []Activity `json:"activities,omitempty"`
	StreamID            string     `json:"streamId,omitempty"`
}

// Validate applies the decode-time validation spec §9 calls for:
// refuse malformed frames at the edge rather than letting internal
// types carry partial state.
func (f *Frame) Validate() error {
	if f.Type == "" {
		return fmt.Errorf("%w: missing type", bridgeerr.ErrProtocol)
	}
	if f.ConversationID == "" {
		return fmt.Errorf("%w: missing conversationId", bridgeerr.ErrProtocol)
	}
	switch f.Type {
	case TypeSessionInitiate:
		if f.BotName == "" || f.Caller == "" || len(f.SupportedMediaFormats) == 0 {
			return fmt.Errorf("%w: session.initiate missing required fields", bridgeerr.ErrProtocol)
		}
	case TypeSessionResume:
		if f.BotName == "" || f.Caller == "" {
			return fmt.Errorf("%w: session.resume missing required fields", bridgeerr.ErrProtocol)
		}
	case TypeUserStreamChunk:
		if f.AudioChunk == "" {
			return fmt.Errorf("%w: userStream.chunk missing audioChunk", bridgeerr.ErrProtocol)
		}
	case TypeActivities:
		if len(f.Activities) == 0 {
			return fmt.Errorf("%w: activities frame with no activities", bridgeerr.ErrProtocol)
		}
	}
	return nil
}

// ParseFrame decodes and validates an inbound AudioCodes frame.
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

// --- Outbound builders (spec §4.1, §6.1) ---

func SessionAccepted(conversationID, mediaFormat string) Frame {
	return Frame{Type: TypeSessionAccepted, ConversationID: conversationID, MediaFormat: mediaFormat}
}

func SessionResumed(conversationID string) Frame {
	return Frame{Type: TypeSessionResumed, ConversationID: conversationID}
}

func SessionError(conversationID, reason string) Frame {
	return Frame{Type: TypeSessionError, ConversationID: conversationID, Reason: reason}
}

func ConnectionValidated(conversationID string) Frame {
	return Frame{Type: TypeConnectionValidated, ConversationID: conversationID}
}

func UserStreamStarted(conversationID string) Frame {
	return Frame{Type: TypeUserStreamStarted, ConversationID: conversationID}
}

func UserStreamStopped(conversationID string) Frame {
	return Frame{Type: TypeUserStreamStopped, ConversationID: conversationID}
}

func SpeechStarted(conversationID string) Frame {
	return Frame{Type: TypeSpeechStarted, ConversationID: conversationID}
}

func SpeechStopped(conversationID string) Frame {
	return Frame{Type: TypeSpeechStopped, ConversationID: conversationID}
}

func PlayStreamStart(conversationID, streamID, mediaFormat string) Frame {
	return Frame{Type: TypePlayStreamStart, ConversationID: conversationID, StreamID: streamID, MediaFormat: mediaFormat}
}

func PlayStreamChunk(conversationID, streamID, audioChunk string) Frame {
	return Frame{Type: TypePlayStreamChunk, ConversationID: conversationID, StreamID: streamID, AudioChunk: audioChunk}
}

func PlayStreamStop(conversationID, streamID string) Frame {
	return Frame{Type: TypePlayStreamStop, ConversationID: conversationID, StreamID: streamID}
}
