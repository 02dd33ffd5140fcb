// internal/models/models_test.go
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexIntAcceptsNumbersAndNumericStrings(t *testing.T) {
	var req PortCheckRequest
	require.NoError(t, json.Unmarshal([]byte(`{"host":"h","port":"8080","timeout":250}`), &req))
	assert.Equal(t, 8080, req.Port.Int(0))
	assert.Equal(t, 250, req.Timeout.Int(0))

	require.NoError(t, json.Unmarshal([]byte(`{"host":"h","port":22.0}`), &req))
	assert.Equal(t, 22, req.Port.Int(0))
}

func TestFlexIntRejectsGarbage(t *testing.T) {
	for _, body := range []string{
		`{"port":"abc"}`,
		`{"port":22.5}`,
		`{"port":true}`,
		`{"port":"1e40"}`,
	} {
		var req PortCheckRequest
		assert.Error(t, json.Unmarshal([]byte(body), &req), body)
	}
}

func TestFlexIntNilDefault(t *testing.T) {
	var req PingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"host":"h"}`), &req))
	assert.Nil(t, req.Timeout)
	assert.Equal(t, 5000, req.Timeout.Int(5000))
}

type recordingHandler struct {
	got []InboundMessage
}

func (r *recordingHandler) OnConnect(m SSHConnect)       { r.got = append(r.got, m) }
func (r *recordingHandler) OnInput(m SSHInput)           { r.got = append(r.got, m) }
func (r *recordingHandler) OnResize(m SSHResize)         { r.got = append(r.got, m) }
func (r *recordingHandler) OnDisconnect(m SSHDisconnect) { r.got = append(r.got, m) }
func (r *recordingHandler) OnPing(m Ping)                { r.got = append(r.got, m) }

func TestDecodeAndDispatch(t *testing.T) {
	frames := []string{
		`{"type":"ssh_connect","host":"10.0.0.1","username":"root","password":"pw"}`,
		`{"type":"ssh_input","data":"ls\r"}`,
		`{"type":"ssh_resize","rows":"40","cols":120}`,
		`{"type":"ssh_disconnect"}`,
		`{"type":"ping"}`,
	}

	h := &recordingHandler{}
	for _, f := range frames {
		msg, err := DecodeInbound([]byte(f))
		require.NoError(t, err, f)
		Dispatch(msg, h)
	}

	require.Len(t, h.got, 5)
	conn := h.got[0].(SSHConnect)
	assert.Equal(t, "10.0.0.1", conn.Host)
	assert.Equal(t, DefaultSSHPort, conn.TargetPort())
	assert.Equal(t, "ls\r", h.got[1].(SSHInput).Data)
	assert.Equal(t, FlexInt(40), h.got[2].(SSHResize).Rows)
	assert.Equal(t, FlexInt(120), h.got[2].(SSHResize).Cols)
	assert.IsType(t, SSHDisconnect{}, h.got[3])
	assert.IsType(t, Ping{}, h.got[4])
}

func TestDecodeInboundErrors(t *testing.T) {
	_, err := DecodeInbound([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeInbound([]byte(`{"data":"x"}`))
	assert.Error(t, err)

	_, err = DecodeInbound([]byte(`{"type":"launch_missiles"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	_, err = DecodeInbound([]byte(`{"type":"ssh_resize","rows":"tall"}`))
	assert.Error(t, err)
}

func TestSSHConnectValidate(t *testing.T) {
	assert.NoError(t, SSHConnect{Host: "h", Username: "u", Password: "p"}.Validate())
	assert.NoError(t, SSHConnect{Host: "h", Username: "u", PrivateKey: "k"}.Validate())
	assert.Error(t, SSHConnect{Username: "u", Password: "p"}.Validate())
	assert.Error(t, SSHConnect{Host: "h", Password: "p"}.Validate())
	assert.Error(t, SSHConnect{Host: "h", Username: "u"}.Validate())

	bad := FlexInt(70000)
	assert.Error(t, SSHConnect{Host: "h", Username: "u", Password: "p", Port: &bad}.Validate())
}
