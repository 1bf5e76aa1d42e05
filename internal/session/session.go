// Package session models the telephony-side control plane for one call
// (spec §4.1): both the AudioCodes and the Twilio state machines, plus
// the pure frame builders the Session Manager exposes to the Bridge
// Orchestrator. There is no single teacher file for this state machine
// — it is grounded in the field names and transitions the teacher's
// twilio_connection.go tracks ad hoc (streamSid, stream lifecycle) and
// in the AudioCodes dialect description in original_source's
// opusagent/models/__init__.py, generalized into one explicit FSA per
// dialect as spec §9 asks for.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicebridge/bridge/internal/bridgeerr"
	"github.com/voicebridge/bridge/internal/protocol/audiocodes"
	"github.com/voicebridge/bridge/internal/protocol/twilio"
)

// Dialect identifies which telephony JSON dialect a Session speaks.
type Dialect string

const (
	DialectAudioCodes Dialect = "audiocodes"
	DialectTwilio     Dialect = "twilio"
)

// Status is the call lifecycle status shared by both dialects (spec §3).
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusInitiating   Status = "initiating" // AudioCodes only
	StatusActive       Status = "active"
	StatusResuming     Status = "resuming" // AudioCodes only
	StatusEnding       Status = "ending"
	StatusError        Status = "error"
)

// StreamState is the lifecycle of one audio substream (user or play).
type StreamState string

const (
	StreamInactive StreamState = "inactive"
	StreamActive   StreamState = "active"
	StreamStopped  StreamState = "stopped"
)

// Session is the Session Manager's per-call state. All mutation goes
// through its methods, which are safe for concurrent use since the
// Event Router may invoke handlers from more than one goroutine
// (upstream dispatch and platform dispatch run independently).
type Session struct {
	mu sync.Mutex

	Dialect   Dialect
	ConvID    string
	Status    Status
	ErrorReason string

	CreatedAt      time.Time
	LastActivityAt time.Time

	UserStream StreamState
	PlayStream StreamState

	SpeechActive    bool
	SpeechCommitted bool

	CurrentPlayStreamID string

	// BotName/Caller/MediaFormat are set from the AudioCodes
	// session.initiate/resume frame and echoed back for builders.
	BotName     string
	Caller      string
	MediaFormat string

	// StreamSid is the Twilio equivalent of ConvID on the wire.
	StreamSid string
}

// Create allocates a new Session, assigning convID if empty (spec
// §4.1 create()).
func Create(dialect Dialect, convID string) *Session {
	if convID == "" {
		convID = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		Dialect:        dialect,
		ConvID:         convID,
		Status:         StatusConnecting,
		CreatedAt:      now,
		LastActivityAt: now,
		UserStream:     StreamInactive,
		PlayStream:     StreamInactive,
	}
}

func (s *Session) touch() { s.LastActivityAt = time.Now() }

// canTransition reports whether the session may leave its current
// status; it refuses only when the status is Error or Ending and does
// not check the target status. Callers must already hold s.mu.
func (s *Session) canTransition(to Status) bool {
	if s.Status == StatusError || s.Status == StatusEnding {
		return false // terminal states never reopen
	}
	return true
}

// BuildInitiate produces the AudioCodes session.initiate frame and
// advances status Connecting → Initiating.
func (s *Session) BuildInitiate(botName, caller string, supportedFormats []string) (audiocodes.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Dialect != DialectAudioCodes {
		return audiocodes.Frame{}, fmt.Errorf("%w: build_initiate is AudioCodes-only", bridgeerr.ErrProtocol)
	}
	if !s.canTransition(StatusInitiating) {
		return audiocodes.Frame{}, fmt.Errorf("%w: cannot initiate from status %s", bridgeerr.ErrProtocol, s.Status)
	}
	s.BotName, s.Caller = botName, caller
	s.Status = StatusInitiating
	s.touch()
	return audiocodes.Frame{
		Type:                  audiocodes.TypeSessionInitiate,
		ConversationID:        s.ConvID,
		BotName:               botName,
		Caller:                caller,
		ExpectAudioMessages:   true,
		SupportedMediaFormats: supportedFormats,
	}, nil
}

// BuildResume produces session.resume and advances status → Resuming.
func (s *Session) BuildResume() (audiocodes.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Dialect != DialectAudioCodes {
		return audiocodes.Frame{}, fmt.Errorf("%w: build_resume is AudioCodes-only", bridgeerr.ErrProtocol)
	}
	s.Status = StatusResuming
	s.touch()
	return audiocodes.Frame{Type: audiocodes.TypeSessionResume, ConversationID: s.ConvID, BotName: s.BotName, Caller: s.Caller}, nil
}

// BuildValidate produces connection.validate.
func (s *Session) BuildValidate() (audiocodes.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return audiocodes.Frame{Type: audiocodes.TypeConnectionValidate, ConversationID: s.ConvID}, nil
}

// BuildEnd advances status → Ending and records reason in ErrorReason.
// It builds no frame: neither a session.end nor a Twilio stop frame is
// produced, and the error it returns is always nil.
func (s *Session) BuildEnd(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusEnding
	s.ErrorReason = reason
	s.touch()
	return nil
}

// BuildDTMF produces an AudioCodes activities frame carrying a dtmf event.
func (s *Session) BuildDTMF(digit string) (audiocodes.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return audiocodes.Frame{
		Type:           audiocodes.TypeActivities,
		ConversationID: s.ConvID,
		Activities:     []audiocodes.Activity{{Type: "event", Name: "dtmf", Value: digit}},
	}, nil
}

// BuildHangup produces an AudioCodes activities frame carrying a hangup event.
func (s *Session) BuildHangup() (audiocodes.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return audiocodes.Frame{
		Type:           audiocodes.TypeActivities,
		ConversationID: s.ConvID,
		Activities:     []audiocodes.Activity{{Type: "event", Name: "hangup"}},
	}, nil
}

// BuildCustomActivity wraps an opaque activity name/value pair,
// forwarded without interpretation per spec §1's content-agnosticism.
func (s *Session) BuildCustomActivity(name, value string) (audiocodes.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return audiocodes.Frame{
		Type:           audiocodes.TypeActivities,
		ConversationID: s.ConvID,
		Activities:     []audiocodes.Activity{{Type: "event", Name: name, Value: value}},
	}, nil
}

// HandleAccepted processes an AudioCodes session.accepted frame:
// Initiating → Active.
func (s *Session) HandleAccepted(f *audiocodes.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != StatusInitiating {
		return fmt.Errorf("%w: session.accepted while in status %s", bridgeerr.ErrProtocol, s.Status)
	}
	s.MediaFormat = f.MediaFormat
	s.Status = StatusActive
	s.touch()
	return nil
}

// HandleResumed processes session.resumed: Resuming → Active.
func (s *Session) HandleResumed(f *audiocodes.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != StatusResuming {
		return fmt.Errorf("%w: session.resumed while in status %s", bridgeerr.ErrProtocol, s.Status)
	}
	s.Status = StatusActive
	s.touch()
	return nil
}

// HandleError processes session.error: any status → Error.
func (s *Session) HandleError(f *audiocodes.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusError
	s.ErrorReason = f.Reason
	s.touch()
	return nil
}

// HandleValidated processes connection.validated. It does not change status.
func (s *Session) HandleValidated(f *audiocodes.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return nil
}

// LostConnection marks an AudioCodes Active session as reconnecting
// (Active → Resuming). Nothing in internal/bridge calls it: when the
// platform socket drops, the call handler's read loop just returns.
func (s *Session) LostConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Dialect == DialectAudioCodes && s.Status == StatusActive {
		s.Status = StatusResuming
	}
}

// --- Twilio dialect: collapsed state machine, no Initiating/Resuming. ---

// HandleTwilioStart processes the Twilio `start` frame: Connecting → Active.
func (s *Session) HandleTwilioStart(f *twilio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Start == nil {
		return fmt.Errorf("%w: start frame missing payload", bridgeerr.ErrProtocol)
	}
	s.StreamSid = f.Start.StreamSid
	s.Status = StatusActive
	s.UserStream = StreamActive
	s.touch()
	return nil
}

// HandleTwilioStop processes the Twilio `stop` frame: → Ending.
func (s *Session) HandleTwilioStop(f *twilio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusEnding
	s.UserStream = StreamStopped
	s.touch()
	return nil
}

// SetUserStreamActive/Stopped and SetPlayStreamActive/Stopped track the
// per-call substream invariants described in spec §3.

func (s *Session) SetUserStreamActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserStream = StreamActive
}

func (s *Session) SetUserStreamStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserStream = StreamStopped
}

func (s *Session) SetPlayStreamActive(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PlayStream = StreamActive
	s.CurrentPlayStreamID = streamID
}

func (s *Session) SetPlayStreamStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PlayStream = StreamStopped
	s.CurrentPlayStreamID = ""
}

// Snapshot returns a read-only copy of the current status fields, for
// logging and tests, without exposing the mutex.
type Snapshot struct {
	Status      Status
	UserStream  StreamState
	PlayStream  StreamState
	ErrorReason string
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Status: s.Status, UserStream: s.UserStream, PlayStream: s.PlayStream, ErrorReason: s.ErrorReason}
}
