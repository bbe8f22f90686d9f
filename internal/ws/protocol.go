package ws

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/relay"
)

// Control events travel as JSON text messages; audio travels as binary
// frames. Inbound binary frames carry a 16-byte message id header
// followed by little-endian float32 samples. Outbound (relayed) frames
// add the 16-byte sender connection id after the message id so
// receivers can do their own echo suppression.
const (
	EventStart     = "start"
	EventEnd       = "end"
	EventMessageID = "message_id"
	EventError     = "error"
)

const (
	inboundFrameHeaderLen  = 16
	outboundFrameHeaderLen = 32
)

// ClientEvent is a control message from a client
type ClientEvent struct {
	Type        string     `json:"type"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	MessageID   *uuid.UUID `json:"message_id,omitempty"`
}

// ServerEvent is a control message to a client
type ServerEvent struct {
	Type      string     `json:"type"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// DecodeAudioFrame parses an inbound binary frame into its message id
// and samples
func DecodeAudioFrame(data []byte) (uuid.UUID, []float32, error) {
	if len(data) < inboundFrameHeaderLen {
		return uuid.Nil, nil, fmt.Errorf("audio frame too small: %d bytes", len(data))
	}
	if (len(data)-inboundFrameHeaderLen)%4 != 0 {
		return uuid.Nil, nil, fmt.Errorf("audio frame payload is not float32-aligned")
	}

	messageID, err := uuid.FromBytes(data[:inboundFrameHeaderLen])
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid message id: %w", err)
	}

	payload := data[inboundFrameHeaderLen:]
	samples := make([]float32, 0, len(payload)/4)
	for i := 0; i+3 < len(payload); i += 4 {
		bits := binary.LittleEndian.Uint32(payload[i:])
		samples = append(samples, math.Float32frombits(bits))
	}

	return messageID, samples, nil
}

// EncodeRelayFrame serializes a relayed frame for delivery to a
// recipient
func EncodeRelayFrame(frame relay.Frame) ([]byte, error) {
	senderConnID, err := uuid.Parse(frame.SenderConnID)
	if err != nil {
		return nil, fmt.Errorf("invalid sender connection id: %w", err)
	}

	out := make([]byte, outboundFrameHeaderLen, outboundFrameHeaderLen+len(frame.Samples)*4)
	copy(out[:16], frame.MessageID[:])
	copy(out[16:32], senderConnID[:])

	for _, sample := range frame.Samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(sample))
	}
	return out, nil
}

// DecodeRelayFrame parses an outbound binary frame back into its parts.
// Used by client tooling and tests.
func DecodeRelayFrame(data []byte) (relay.Frame, error) {
	if len(data) < outboundFrameHeaderLen {
		return relay.Frame{}, fmt.Errorf("relay frame too small: %d bytes", len(data))
	}

	messageID, err := uuid.FromBytes(data[:16])
	if err != nil {
		return relay.Frame{}, fmt.Errorf("invalid message id: %w", err)
	}
	senderConnID, err := uuid.FromBytes(data[16:32])
	if err != nil {
		return relay.Frame{}, fmt.Errorf("invalid sender connection id: %w", err)
	}

	payload := data[outboundFrameHeaderLen:]
	samples := make([]float32, 0, len(payload)/4)
	for i := 0; i+3 < len(payload); i += 4 {
		bits := binary.LittleEndian.Uint32(payload[i:])
		samples = append(samples, math.Float32frombits(bits))
	}

	return relay.Frame{
		MessageID:    messageID,
		SenderConnID: senderConnID.String(),
		Samples:      samples,
	}, nil
}

// EncodeAudioFrame builds an inbound-style binary frame. Client-side
// helper; the server only decodes these.
func EncodeAudioFrame(messageID uuid.UUID, samples []float32) []byte {
	out := make([]byte, inboundFrameHeaderLen, inboundFrameHeaderLen+len(samples)*4)
	copy(out[:16], messageID[:])
	for _, sample := range samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(sample))
	}
	return out
}
