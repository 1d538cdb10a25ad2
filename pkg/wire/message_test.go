package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMessageRoundTrip(t *testing.T) {
	msg, err := NewEventMessage(7, "create", map[string]any{"file_name": "report.pdf"})
	require.NoError(t, err)

	data, err := EncodeMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MessageEvent, decoded.Type)
	assert.Equal(t, uint64(7), decoded.ID)
	assert.Equal(t, "create", decoded.Event)
	require.Len(t, decoded.Args, 1)
	assert.JSONEq(t, `{"file_name":"report.pdf"}`, string(decoded.Args[0]))
}

func TestAckMessageRoundTrip(t *testing.T) {
	msg, err := NewAckMessage(7, Payload{Code: 201, Data: map[string]any{"file_id": "abc"}})
	require.NoError(t, err)

	data, err := EncodeMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MessageAck, decoded.Type)
	assert.Equal(t, uint64(7), decoded.ID)

	p, err := decoded.Payload()
	require.NoError(t, err)
	assert.Equal(t, 201, p.Code)
	assert.Equal(t, map[string]any{"file_id": "abc"}, p.Data)
}

func TestAckMessageBarePayload(t *testing.T) {
	msg, err := NewAckMessage(3, Payload{Data: "hello"})
	require.NoError(t, err)

	p, err := msg.Payload()
	require.NoError(t, err)
	assert.True(t, p.IsBare())
	assert.Equal(t, "hello", p.Value())
}

func TestPayloadValue(t *testing.T) {
	bare := Payload{Data: []any{"x"}}
	assert.Equal(t, []any{"x"}, bare.Value())

	coded := Payload{Code: 200, Data: "ok"}
	assert.Equal(t, map[string]any{"code": 200, "data": "ok"}, coded.Value())
}

func TestDecodeMessageErrors(t *testing.T) {
	_, err := DecodeMessage([]byte("{not json"))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeMessage([]byte(`{"t":"bogus"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	_, err = DecodeMessage([]byte(`{"t":"event","id":1}`))
	assert.ErrorIs(t, err, ErrMissingEventName)
}

func TestErrorMessage(t *testing.T) {
	msg := NewErrorMessage(400, "malformed message")
	data, err := EncodeMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MessageError, decoded.Type)
	assert.Equal(t, 400, decoded.Code)
}

func TestArgsEncoding(t *testing.T) {
	raw, err := Args(map[string]any{"a": 1}, "s", 42)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.JSONEq(t, `{"a":1}`, string(raw[0]))
	assert.Equal(t, `"s"`, string(raw[1]))
	assert.Equal(t, `42`, string(raw[2]))
}
