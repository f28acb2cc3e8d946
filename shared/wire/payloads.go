package wire

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/piyushdolas8/skillswap/internal/scene"
)

// CodeUpdate replaces the shared code buffer.
type CodeUpdate struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// UnmarshalJSON rejects payloads without a code field. An empty string is a
// valid buffer.
func (p *CodeUpdate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code     *string `json:"code"`
		Language string  `json:"language"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Code == nil {
		return errors.New("missing code")
	}
	p.Code, p.Language = *raw.Code, raw.Language
	return nil
}

// ElementPayload carries a full element for element-added and
// element-updated.
type ElementPayload struct {
	Element scene.Element `json:"element"`
}

// Validate implements Validator.
func (p *ElementPayload) Validate() error {
	return p.Element.Validate()
}

// ElementRemoved deletes one element by id.
type ElementRemoved struct {
	ID string `json:"id"`
}

// Validate implements Validator.
func (p *ElementRemoved) Validate() error {
	if p.ID == "" {
		return errors.New("missing id")
	}
	return nil
}

// ClearCanvas empties the scene. It has no fields.
type ClearCanvas struct{}

// ChatMessage is one chat line.
type ChatMessage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
	// Timestamp is in ms since epoch.
	Timestamp int64 `json:"timestamp"`
}

// Validate implements Validator.
func (p *ChatMessage) Validate() error {
	if p.ID == "" {
		return errors.New("missing id")
	}
	if strings.TrimSpace(p.Text) == "" {
		return errors.New("empty text")
	}
	return nil
}

// SharedFile references a file uploaded to object storage.
type SharedFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	SizeBytes    int64  `json:"size"`
	UploaderName string `json:"uploaderName"`
	// CreatedAt is in ms since epoch.
	CreatedAt int64 `json:"createdAt"`
}

// FileShared announces a new shared file.
type FileShared struct {
	File SharedFile `json:"file"`
}

// Validate implements Validator.
func (p *FileShared) Validate() error {
	if p.File.ID == "" || p.File.URL == "" {
		return errors.New("file needs id and url")
	}
	return nil
}

// MediaStatus is one participant's published media state.
type MediaStatus struct {
	IsMuted         bool `json:"isMuted"`
	IsVideoOff      bool `json:"isVideoOff"`
	IsScreenSharing bool `json:"isScreenSharing"`
}

// PeerJoined asks the peer that was already present to start negotiation.
type PeerJoined struct{}

// SessionDescription carries an SDP offer or answer.
type SessionDescription struct {
	SDP string `json:"sdp"`
}

// Validate implements Validator.
func (p *SessionDescription) Validate() error {
	if strings.TrimSpace(p.SDP) == "" {
		return errors.New("empty sdp")
	}
	return nil
}

// ICECandidate is a trickled ICE candidate.
type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Validate implements Validator.
func (p *ICECandidate) Validate() error {
	if p.Candidate == "" {
		return errors.New("empty candidate")
	}
	return nil
}

// SocketAuth is the handshake auth payload a client sends to the relay.
type SocketAuth struct {
	Token string `json:"token"`
	Topic string `json:"topic"`
}

// Subscribed is the relay's subscription acknowledgement.
type Subscribed struct {
	Topic string `json:"topic"`
	// Self is the participant id the relay stamps on this client's messages.
	Self string `json:"self"`
	// Peers is the number of participants on the topic, including self.
	Peers int `json:"peers"`
}

// ErrorPayload is emitted by the relay before it disconnects a client.
type ErrorPayload struct {
	Message string `json:"message"`
}
