package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/voicebridge/bridge/internal/bridgeerr"
)

// InboundType enumerates event families the bridge receives from the
// upstream peer (§6.3 "Server→client families"). Adapted from the
// teacher's ServerEventType taxonomy (pkg/realtimeapi/events/server.go)
// with the perspective flipped: there, these were events the teacher's
// own hosted server sent out; here, they are events this bridge reads
// in off its upstream client connection.
type InboundType string

const (
	InboundError                                  InboundType = "error"
	InboundSessionCreated                         InboundType = "session.created"
	InboundSessionUpdated                         InboundType = "session.updated"
	InboundConversationCreated                    InboundType = "conversation.created"
	InboundConversationItemCreated                InboundType = "conversation.item.created"
	InboundConversationItemRetrieved              InboundType = "conversation.item.retrieved"
	InboundConversationItemTruncated              InboundType = "conversation.item.truncated"
	InboundConversationItemDeleted                InboundType = "conversation.item.deleted"
	InboundItemInputAudioTranscriptionDelta       InboundType = "conversation.item.input_audio_transcription.delta"
	InboundItemInputAudioTranscriptionCompleted   InboundType = "conversation.item.input_audio_transcription.completed"
	InboundItemInputAudioTranscriptionFailed      InboundType = "conversation.item.input_audio_transcription.failed"
	InboundInputAudioBufferCommitted              InboundType = "input_audio_buffer.committed"
	InboundInputAudioBufferCleared                InboundType = "input_audio_buffer.cleared"
	InboundInputAudioBufferSpeechStarted          InboundType = "input_audio_buffer.speech_started"
	InboundInputAudioBufferSpeechStopped          InboundType = "input_audio_buffer.speech_stopped"
	InboundResponseCreated                        InboundType = "response.created"
	InboundResponseDone                           InboundType = "response.done"
	InboundResponseCancelled                      InboundType = "response.cancelled"
	InboundResponseOutputItemAdded                InboundType = "response.output_item.added"
	InboundResponseOutputItemDone                 InboundType = "response.output_item.done"
	InboundResponseContentPartAdded               InboundType = "response.content_part.added"
	InboundResponseContentPartDone                InboundType = "response.content_part.done"
	InboundResponseTextDelta                      InboundType = "response.text.delta"
	InboundResponseTextDone                       InboundType = "response.text.done"
	InboundResponseAudioDelta                     InboundType = "response.audio.delta"
	InboundResponseAudioDone                      InboundType = "response.audio.done"
	InboundResponseAudioTranscriptDelta           InboundType = "response.audio_transcript.delta"
	InboundResponseAudioTranscriptDone            InboundType = "response.audio_transcript.done"
	InboundResponseFunctionCallArgumentsDelta     InboundType = "response.function_call_arguments.delta"
	InboundResponseFunctionCallArgumentsDone      InboundType = "response.function_call_arguments.done"
	InboundRateLimitsUpdated                      InboundType = "rate_limits.updated"
)

// LogOnlyTypes is the set of upstream event types the Event Router
// additionally emits a structured log line for (§4.2): errors, rate
// limit updates, and terminal "done" markers.
var LogOnlyTypes = map[InboundType]bool{
	InboundError:             true,
	InboundRateLimitsUpdated: true,
	InboundResponseDone:      true,
	InboundResponseCancelled: true,
}

// InboundEvent is anything the bridge can receive from upstream.
type InboundEvent interface {
	EventType() InboundType
}

type baseInbound struct {
	EventID string      `json:"event_id,omitempty"`
	Type    InboundType `json:"type"`
}

func (b baseInbound) EventType() InboundType { return b.Type }

type ErrorEvent struct {
	baseInbound
	Error ErrorDetail `json:"error"`
}

type SessionCreatedEvent struct {
	baseInbound
	Session Session `json:"session"`
}

type SessionUpdatedEvent struct {
	baseInbound
	Session Session `json:"session"`
}

type ConversationCreatedEvent struct {
	baseInbound
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
}

type ConversationItemCreatedEvent struct {
	baseInbound
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ConversationItem `json:"item"`
}

type ConversationItemTruncatedEvent struct {
	baseInbound
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
}

type ConversationItemDeletedEvent struct {
	baseInbound
	ItemID string `json:"item_id"`
}

type InputAudioBufferCommittedEvent struct {
	baseInbound
	PreviousItemID string `json:"previous_item_id,omitempty"`
	ItemID         string `json:"item_id"`
}

type InputAudioBufferClearedEvent struct{ baseInbound }

type InputAudioBufferSpeechStartedEvent struct {
	baseInbound
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

type InputAudioBufferSpeechStoppedEvent struct {
	baseInbound
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

type ResponseCreatedEvent struct {
	baseInbound
	Response Response `json:"response"`
}

type ResponseDoneEvent struct {
	baseInbound
	Response Response `json:"response"`
}

type ResponseOutputItemAddedEvent struct {
	baseInbound
	ResponseID  string           `json:"response_id"`
	OutputIndex int              `json:"output_index"`
	Item        ConversationItem `json:"item"`
}

type ResponseOutputItemDoneEvent struct {
	baseInbound
	ResponseID  string           `json:"response_id"`
	OutputIndex int              `json:"output_index"`
	Item        ConversationItem `json:"item"`
}

type ResponseContentPartAddedEvent struct {
	baseInbound
	ResponseID   string  `json:"response_id"`
	ItemID       string  `json:"item_id"`
	OutputIndex  int     `json:"output_index"`
	ContentIndex int     `json:"content_index"`
	Part         Content `json:"part"`
}

type ResponseContentPartDoneEvent struct {
	baseInbound
	ResponseID   string  `json:"response_id"`
	ItemID       string  `json:"item_id"`
	OutputIndex  int     `json:"output_index"`
	ContentIndex int     `json:"content_index"`
	Part         Content `json:"part"`
}

type ResponseTextDeltaEvent struct {
	baseInbound
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

type ResponseTextDoneEvent struct {
	baseInbound
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

// ResponseAudioDeltaEvent carries one incremental base64 PCM16 audio
// fragment (§3 Delta; the Realtime Client's audio output queue
// producer, §4.4.4).
type ResponseAudioDeltaEvent struct {
	baseInbound
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

type ResponseAudioDoneEvent struct {
	baseInbound
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
}

type ResponseAudioTranscriptDeltaEvent struct {
	baseInbound
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

type ResponseAudioTranscriptDoneEvent struct {
	baseInbound
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Transcript   string `json:"transcript"`
}

type ResponseFunctionCallArgumentsDeltaEvent struct {
	baseInbound
	ResponseID  string `json:"response_id"`
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	CallID      string `json:"call_id"`
	Delta       string `json:"delta"`
}

type ResponseFunctionCallArgumentsDoneEvent struct {
	baseInbound
	ResponseID  string `json:"response_id"`
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	CallID      string `json:"call_id"`
	Arguments   string `json:"arguments"`
}

type RateLimitsUpdatedEvent struct {
	baseInbound
	RateLimits []RateLimit `json:"rate_limits"`
}

// ParseInbound parses a JSON-framed upstream event. It first decodes
// only the discriminator, then dispatches to the concrete type — the
// same two-phase approach as the teacher's
// pkg/realtimeapi/events/server.go ParseServerEvent, generalized to
// this package's InboundType set. Unrecognized-but-well-formed types
// fall back to the base event rather than erroring, matching the
// teacher's forward-compatible behavior.
func ParseInbound(data []byte) (InboundEvent, error) {
	var base baseInbound
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", bridgeerr.ErrProtocol, err)
	}
	if base.Type == "" {
		return nil, fmt.Errorf("%w: missing type discriminator", bridgeerr.ErrProtocol)
	}

	decodeInto := func(v InboundEvent) (InboundEvent, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("%w: %v", bridgeerr.ErrProtocol, err)
		}
		return v, nil
	}

	switch base.Type {
	case InboundError:
		return decodeInto(&ErrorEvent{})
	case InboundSessionCreated:
		return decodeInto(&SessionCreatedEvent{})
	case InboundSessionUpdated:
		return decodeInto(&SessionUpdatedEvent{})
	case InboundConversationCreated:
		return decodeInto(&ConversationCreatedEvent{})
	case InboundConversationItemCreated:
		return decodeInto(&ConversationItemCreatedEvent{})
	case InboundConversationItemTruncated:
		return decodeInto(&ConversationItemTruncatedEvent{})
	case InboundConversationItemDeleted:
		return decodeInto(&ConversationItemDeletedEvent{})
	case InboundInputAudioBufferCommitted:
		return decodeInto(&InputAudioBufferCommittedEvent{})
	case InboundInputAudioBufferCleared:
		return decodeInto(&InputAudioBufferClearedEvent{})
	case InboundInputAudioBufferSpeechStarted:
		return decodeInto(&InputAudioBufferSpeechStartedEvent{})
	case InboundInputAudioBufferSpeechStopped:
		return decodeInto(&InputAudioBufferSpeechStoppedEvent{})
	case InboundResponseCreated:
		return decodeInto(&ResponseCreatedEvent{})
	case InboundResponseDone, InboundResponseCancelled:
		return decodeInto(&ResponseDoneEvent{})
	case InboundResponseOutputItemAdded:
		return decodeInto(&ResponseOutputItemAddedEvent{})
	case InboundResponseOutputItemDone:
		return decodeInto(&ResponseOutputItemDoneEvent{})
	case InboundResponseContentPartAdded:
		return decodeInto(&ResponseContentPartAddedEvent{})
	case InboundResponseContentPartDone:
		return decodeInto(&ResponseContentPartDoneEvent{})
	case InboundResponseTextDelta:
		return decodeInto(&ResponseTextDeltaEvent{})
	case InboundResponseTextDone:
		return decodeInto(&ResponseTextDoneEvent{})
	case InboundResponseAudioDelta:
		return decodeInto(&ResponseAudioDeltaEvent{})
	case InboundResponseAudioDone:
		return decodeInto(&ResponseAudioDoneEvent{})
	case InboundResponseAudioTranscriptDelta:
		return decodeInto(&ResponseAudioTranscriptDeltaEvent{})
	case InboundResponseAudioTranscriptDone:
		return decodeInto(&ResponseAudioTranscriptDoneEvent{})
	case InboundResponseFunctionCallArgumentsDelta:
		return decodeInto(&ResponseFunctionCallArgumentsDeltaEvent{})
	case InboundResponseFunctionCallArgumentsDone:
		return decodeInto(&ResponseFunctionCallArgumentsDoneEvent{})
	case InboundRateLimitsUpdated:
		return decodeInto(&RateLimitsUpdatedEvent{})
	default:
		return &base, nil
	}
}
