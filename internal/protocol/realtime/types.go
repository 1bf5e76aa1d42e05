// Package realtime defines the upstream Realtime API event taxonomy
// (§6.3): the event families a bridge client sends to and receives from
// an OpenAI-style Realtime LLM API over a websocket.
package realtime

// Modality is a response output channel.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// AudioFormat is the wire encoding of audio content.
type AudioFormat string

const (
	AudioFormatPCM16    AudioFormat = "pcm16"
	AudioFormatG711ULaw AudioFormat = "g711_ulaw"
	AudioFormatG711ALaw AudioFormat = "g711_alaw"
)

// ItemType distinguishes conversation item kinds.
type ItemType string

const (
	ItemTypeMessage            ItemType = "message"
	ItemTypeFunctionCall       ItemType = "function_call"
	ItemTypeFunctionCallOutput ItemType = "function_call_output"
)

// ItemStatus is the lifecycle stage of a conversation item.
type ItemStatus string

const (
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusIncomplete ItemStatus = "incomplete"
)

// Role identifies who produced a conversation item.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// ContentType identifies the kind of a content part.
type ContentType string

const (
	ContentTypeInputText  ContentType = "input_text"
	ContentTypeInputAudio ContentType = "input_audio"
	ContentTypeText       ContentType = "text"
	ContentTypeAudio      ContentType = "audio"
)

// ResponseStatus is the lifecycle stage of a Response (§3).
type ResponseStatus string

const (
	ResponseStatusInProgress ResponseStatus = "in_progress"
	ResponseStatusCompleted  ResponseStatus = "completed"
	ResponseStatusCancelled  ResponseStatus = "cancelled"
	ResponseStatusFailed     ResponseStatus = "failed"
)

// TurnDetectionType selects server-side turn segmentation.
type TurnDetectionType string

const (
	TurnDetectionServerVAD TurnDetectionType = "server_vad"
	TurnDetectionNone      TurnDetectionType = "none"
)

// ErrorType classifies an upstream error event.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	ErrorTypeAuthentication ErrorType = "authentication_error"
	ErrorTypeRateLimit      ErrorType = "rate_limit_error"
	ErrorTypeServer         ErrorType = "server_error"
	ErrorTypeSession        ErrorType = "session_error"
)

// TurnDetection configures server-side VAD-driven turn segmentation.
type TurnDetection struct {
	Type              TurnDetectionType `json:"type"`
	Threshold         float64           `json:"threshold,omitempty"`
	PrefixPaddingMs   int               `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int               `json:"silence_duration_ms,omitempty"`
	CreateResponse    *bool             `json:"create_response,omitempty"`
}

// TranscriptionConfig configures input audio transcription.
type TranscriptionConfig struct {
	Model string `json:"model,omitempty"`
}

// Tool is an opaque function-calling tool schema, passed through
// unexamined by the bridge (§1: "tool lists are opaque configuration").
type Tool struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// SessionConfig is what the bridge sends upstream in session.update
// (§4.4.2). Instructions/voice/tool content is opaque configuration.
type SessionConfig struct {
	Modalities              []Modality            `json:"modalities,omitempty"`
	Instructions            string                 `json:"instructions,omitempty"`
	Voice                   string                 `json:"voice,omitempty"`
	InputAudioFormat        AudioFormat            `json:"input_audio_format,omitempty"`
	OutputAudioFormat       AudioFormat            `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConfig   `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection         `json:"turn_detection,omitempty"`
	Tools                   []Tool                 `json:"tools,omitempty"`
	ToolChoice              string                 `json:"tool_choice,omitempty"`
	Temperature             float64                `json:"temperature,omitempty"`
	MaxResponseOutputTokens any                    `json:"max_response_output_tokens,omitempty"`
}

// Session is the upstream's acknowledged session object (session.created/updated payload).
type Session struct {
	ID     string        `json:"id,omitempty"`
	Object string        `json:"object,omitempty"`
	Model  string        `json:"model,omitempty"`
	Config SessionConfig `json:"-"`
}

// Content is one element of a ConversationItem's content array (§3).
type Content struct {
	Type       ContentType `json:"type"`
	Text       string      `json:"text,omitempty"`
	Audio      string      `json:"audio,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
}

// ConversationItem is the bridge's pass-through record for a turn (§3).
type ConversationItem struct {
	ID      string     `json:"id,omitempty"`
	Object  string     `json:"object,omitempty"`
	Type    ItemType   `json:"type"`
	Status  ItemStatus `json:"status,omitempty"`
	Role    Role       `json:"role,omitempty"`
	Content []Content  `json:"content,omitempty"`
}

// ItemCreateConfig is the payload of a conversation.item.create event.
type ItemCreateConfig struct {
	Type    ItemType   `json:"type"`
	Role    Role       `json:"role,omitempty"`
	Content []Content  `json:"content,omitempty"`
	Status  ItemStatus `json:"status,omitempty"`
}

// ResponseConfig configures a response.create request.
type ResponseConfig struct {
	Modalities   []Modality `json:"modalities,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
}

// StatusDetails carries the reason a response ended the way it did.
type StatusDetails struct {
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// InputTokenDetails / OutputTokenDetails / Usage mirror the upstream
// usage accounting payload; the bridge passes these through unexamined.
type InputTokenDetails struct {
	CachedTokens int `json:"cached_tokens,omitempty"`
	TextTokens   int `json:"text_tokens,omitempty"`
	AudioTokens  int `json:"audio_tokens,omitempty"`
}

type OutputTokenDetails struct {
	TextTokens  int `json:"text_tokens,omitempty"`
	AudioTokens int `json:"audio_tokens,omitempty"`
}

type Usage struct {
	TotalTokens        int                 `json:"total_tokens,omitempty"`
	InputTokens        int                 `json:"input_tokens,omitempty"`
	OutputTokens        int                 `json:"output_tokens,omitempty"`
	InputTokenDetails  InputTokenDetails  `json:"input_token_details,omitempty"`
	OutputTokenDetails OutputTokenDetails `json:"output_token_details,omitempty"`
}

// Response is the upstream's Response object (§3 glossary: one turn
// producing a stream of delta events terminated by response.done).
type Response struct {
	ID            string             `json:"id,omitempty"`
	Object        string             `json:"object,omitempty"`
	Status        ResponseStatus     `json:"status,omitempty"`
	StatusDetails *StatusDetails     `json:"status_details,omitempty"`
	Output        []ConversationItem `json:"output,omitempty"`
	Usage         *Usage             `json:"usage,omitempty"`
}

// ErrorDetail is the body of an upstream error event.
type ErrorDetail struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
	Param   string    `json:"param,omitempty"`
	EventID string    `json:"event_id,omitempty"`
}

// RateLimit is one entry of an upstream rate_limits.updated event.
type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}
