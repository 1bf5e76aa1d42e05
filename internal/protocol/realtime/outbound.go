package realtime

import "encoding/json"

// OutboundType enumerates event families the bridge sends upstream
// (§6.3 "Client→server event families"). Named Outbound rather than
// Client because this package models the bridge's own perspective as a
// client of the upstream API, not the upstream's perspective as in the
// teacher's server-hosting pkg/realtimeapi/events/client.go.
type OutboundType string

const (
	OutboundSessionUpdate              OutboundType = "session.update"
	OutboundInputAudioBufferAppend     OutboundType = "input_audio_buffer.append"
	OutboundInputAudioBufferCommit     OutboundType = "input_audio_buffer.commit"
	OutboundInputAudioBufferClear      OutboundType = "input_audio_buffer.clear"
	OutboundConversationItemCreate     OutboundType = "conversation.item.create"
	OutboundConversationItemRetrieve   OutboundType = "conversation.item.retrieve"
	OutboundConversationItemTruncate   OutboundType = "conversation.item.truncate"
	OutboundConversationItemDelete     OutboundType = "conversation.item.delete"
	OutboundResponseCreate             OutboundType = "response.create"
	OutboundResponseCancel             OutboundType = "response.cancel"
	OutboundTranscriptionSessionUpdate OutboundType = "transcription_session.update"
)

// OutboundEvent is anything the bridge can send upstream.
type OutboundEvent interface {
	EventType() OutboundType
	// ByteSize estimates the payload size for rate-limit accounting (§4.4.5).
	ByteSize() int
}

type baseOutbound struct {
	EventID string       `json:"event_id,omitempty"`
	Type    OutboundType `json:"type"`
}

func (b baseOutbound) EventType() OutboundType { return b.Type }

// SessionUpdateEvent carries a SessionConfig to the upstream peer.
type SessionUpdateEvent struct {
	baseOutbound
	Session SessionConfig `json:"session"`
}

func NewSessionUpdateEvent(cfg SessionConfig) *SessionUpdateEvent {
	return &SessionUpdateEvent{baseOutbound: baseOutbound{Type: OutboundSessionUpdate}, Session: cfg}
}

// ByteSize: control events count as zero bytes toward the rate-limit
// budget (§4.4.5), but still consume one request slot.
func (e *SessionUpdateEvent) ByteSize() int { return 0 }

// InputAudioBufferAppendEvent appends base64 PCM16 audio to the
// upstream's input buffer. Audio append events DO count toward the
// byte budget (§4.4.5).
type InputAudioBufferAppendEvent struct {
	baseOutbound
	Audio string `json:"audio"`
}

func NewInputAudioBufferAppendEvent(audioBase64 string) *InputAudioBufferAppendEvent {
	return &InputAudioBufferAppendEvent{baseOutbound: baseOutbound{Type: OutboundInputAudioBufferAppend}, Audio: audioBase64}
}

func (e *InputAudioBufferAppendEvent) ByteSize() int { return len(e.Audio) }

type InputAudioBufferCommitEvent struct{ baseOutbound }

func NewInputAudioBufferCommitEvent() *InputAudioBufferCommitEvent {
	return &InputAudioBufferCommitEvent{baseOutbound{Type: OutboundInputAudioBufferCommit}}
}
func (e *InputAudioBufferCommitEvent) ByteSize() int { return 0 }

type InputAudioBufferClearEvent struct{ baseOutbound }

func NewInputAudioBufferClearEvent() *InputAudioBufferClearEvent {
	return &InputAudioBufferClearEvent{baseOutbound{Type: OutboundInputAudioBufferClear}}
}
func (e *InputAudioBufferClearEvent) ByteSize() int { return 0 }

// ConversationItemCreateEvent creates a pass-through conversation item.
type ConversationItemCreateEvent struct {
	baseOutbound
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ItemCreateConfig `json:"item"`
}

func NewConversationItemCreateEvent(previousItemID string, item ItemCreateConfig) *ConversationItemCreateEvent {
	return &ConversationItemCreateEvent{
		baseOutbound:   baseOutbound{Type: OutboundConversationItemCreate},
		PreviousItemID: previousItemID,
		Item:           item,
	}
}
func (e *ConversationItemCreateEvent) ByteSize() int {
	n := 0
	for _, c := range e.Item.Content {
		n += len(c.Audio) + len(c.Text)
	}
	return n
}

type ConversationItemTruncateEvent struct {
	baseOutbound
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

func NewConversationItemTruncateEvent(itemID string, contentIndex, audioEndMs int) *ConversationItemTruncateEvent {
	return &ConversationItemTruncateEvent{
		baseOutbound: baseOutbound{Type: OutboundConversationItemTruncate},
		ItemID:       itemID, ContentIndex: contentIndex, AudioEndMs: audioEndMs,
	}
}
func (e *ConversationItemTruncateEvent) ByteSize() int { return 0 }

type ConversationItemDeleteEvent struct {
	baseOutbound
	ItemID string `json:"item_id"`
}

func NewConversationItemDeleteEvent(itemID string) *ConversationItemDeleteEvent {
	return &ConversationItemDeleteEvent{baseOutbound{Type: OutboundConversationItemDelete}, itemID}
}
func (e *ConversationItemDeleteEvent) ByteSize() int { return 0 }

type ResponseCreateEvent struct {
	baseOutbound
	Response *ResponseConfig `json:"response,omitempty"`
}

func NewResponseCreateEvent(cfg *ResponseConfig) *ResponseCreateEvent {
	return &ResponseCreateEvent{baseOutbound{Type: OutboundResponseCreate}, cfg}
}
func (e *ResponseCreateEvent) ByteSize() int { return 0 }

type ResponseCancelEvent struct {
	baseOutbound
	ResponseID string `json:"response_id,omitempty"`
}

func NewResponseCancelEvent(responseID string) *ResponseCancelEvent {
	return &ResponseCancelEvent{baseOutbound{Type: OutboundResponseCancel}, responseID}
}
func (e *ResponseCancelEvent) ByteSize() int { return 0 }

// Marshal serializes an OutboundEvent to the wire JSON form.
func Marshal(evt OutboundEvent) ([]byte, error) {
	return json.Marshal(evt)
}
