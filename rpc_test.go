package sproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func pingPongCatalogue() *Catalogue {
	pong := Type{
		Name:   "Pong",
		Fields: []FieldDescriptor{{Tag: 0, Name: "ok", Type: KindBoolean}},
		Base:   0,
		MaxN:   1,
	}
	cat := NewCatalogue([]Type{pong}, nil)
	types := cat.Types()
	return NewCatalogue(types, []Protocol{
		{Name: "ping", Tag: 10, Response: &types[0]},
	})
}

// TestSessionSymmetry exercises a full request/response round trip carrying
// a session id through Send, Dispatch, Respond, and Dispatch again.
func TestSessionSymmetry(t *testing.T) {
	cat := pingPongCatalogue()
	originator := NewHost(cat, DefaultLimits)
	peer := NewHost(cat, DefaultLimits)

	framed, err := originator.Send("ping", nil, 42)
	require.NoError(t, err)

	req, err := peer.Dispatch(framed)
	require.NoError(t, err)
	require.Equal(t, Request, req.Kind)
	require.Equal(t, "ping", req.ProtocolName)
	require.Equal(t, int64(42), req.Session)
	require.NotNil(t, req.Respond)

	respFramed, err := req.Respond(StructValue([]FieldValue{{Tag: 0, Value: Boolean(true)}}))
	require.NoError(t, err)

	resp, err := originator.Dispatch(respFramed)
	require.NoError(t, err)
	require.Equal(t, Response, resp.Kind)
	require.Equal(t, int64(42), resp.Session)
	require.True(t, resp.Result.Struct[0].Value.Bool)

	// The session table entry is gone: dispatching the same response bytes
	// again must fail as an unknown session.
	_, err = originator.Dispatch(respFramed)
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestSendUnknownProtocol(t *testing.T) {
	cat := pingPongCatalogue()
	h := NewHost(cat, DefaultLimits)
	_, err := h.Send("missing", nil, 1)
	require.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestDispatchUnknownProtocolTag(t *testing.T) {
	cat := pingPongCatalogue()
	h := NewHost(cat, DefaultLimits)

	envelope := buildEnvelope(intPtr(999), 1)
	envBytes, err := EncodeRecord(defaultPackageType, envelope, DefaultLimits)
	require.NoError(t, err)

	_, err = h.Dispatch(h.frameOut(Pack(envBytes)))
	require.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestFrameCompressionTransparency(t *testing.T) {
	cat := pingPongCatalogue()
	plain := NewHost(cat, DefaultLimits)
	compressed := NewHost(cat, DefaultLimits, WithFrameCompression(0))

	argsFree, err := plain.Send("ping", nil, 7)
	require.NoError(t, err)
	argsCompressed, err := compressed.Send("ping", nil, 7)
	require.NoError(t, err)

	peerA := NewHost(cat, DefaultLimits)
	peerB := NewHost(cat, DefaultLimits, WithFrameCompression(0))

	dA, err := peerA.Dispatch(argsFree)
	require.NoError(t, err)
	dB, err := peerB.Dispatch(argsCompressed)
	require.NoError(t, err)

	require.Equal(t, dA.Kind, dB.Kind)
	require.Equal(t, dA.ProtocolName, dB.ProtocolName)
	require.Equal(t, dA.Session, dB.Session)
}

func intPtr(v int) *int { return &v }
