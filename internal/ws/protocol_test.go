package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notsogambhir/Instacom/internal/relay"
)

func TestAudioFrame_RoundTrip(t *testing.T) {
	messageID := uuid.New()
	samples := []float32{0.0, 0.5, -0.5, 1.0, -1.0}

	data := EncodeAudioFrame(messageID, samples)
	require.Len(t, data, inboundFrameHeaderLen+len(samples)*4)

	gotID, gotSamples, err := DecodeAudioFrame(data)
	require.NoError(t, err)
	assert.Equal(t, messageID, gotID)
	assert.Equal(t, samples, gotSamples)
}

func TestDecodeAudioFrame_HeaderOnlyIsEmptyPayload(t *testing.T) {
	messageID := uuid.New()

	gotID, gotSamples, err := DecodeAudioFrame(messageID[:])
	require.NoError(t, err)
	assert.Equal(t, messageID, gotID)
	assert.Empty(t, gotSamples)
}

func TestDecodeAudioFrame_RejectsMalformedFrames(t *testing.T) {
	_, _, err := DecodeAudioFrame([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err, "truncated header")

	messageID := uuid.New()
	misaligned := append(append([]byte{}, messageID[:]...), 0xAA, 0xBB)
	_, _, err = DecodeAudioFrame(misaligned)
	assert.Error(t, err, "payload not float32-aligned")
}

func TestRelayFrame_RoundTrip(t *testing.T) {
	frame := relay.Frame{
		MessageID:    uuid.New(),
		SenderConnID: uuid.New().String(),
		Samples:      []float32{0.25, -0.75},
	}

	data, err := EncodeRelayFrame(frame)
	require.NoError(t, err)
	require.Len(t, data, outboundFrameHeaderLen+len(frame.Samples)*4)

	got, err := DecodeRelayFrame(data)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestEncodeRelayFrame_RejectsBadSenderConnID(t *testing.T) {
	_, err := EncodeRelayFrame(relay.Frame{
		MessageID:    uuid.New(),
		SenderConnID: "not-a-uuid",
	})
	assert.Error(t, err)
}

func TestDecodeRelayFrame_RejectsTruncatedHeader(t *testing.T) {
	messageID := uuid.New()
	_, err := DecodeRelayFrame(messageID[:])
	assert.Error(t, err)
}
