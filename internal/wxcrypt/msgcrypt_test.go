package wxcrypt

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCrypt(t *testing.T, receiverID string) *MsgCrypt {
	t.Helper()
	ctx, err := NewContext("tok", testAESKey)
	require.NoError(t, err)
	return ctx.Bind(receiverID)
}

func TestVerifyURLKnownVector(t *testing.T) {
	m := testCrypt(t, "corp1")
	sig := "e42a3bbe14b8a31ced779121345338ce9bb789d6"

	echo, err := m.VerifyURL(sig, "1700000000", "nonce1", vectorCiphertext)
	require.NoError(t, err)
	require.Equal(t, vectorMessage, string(echo))
}

func TestVerifyURLEndToEnd(t *testing.T) {
	m := testCrypt(t, "corp1")
	echostr, err := m.Seal([]byte(vectorMessage))
	require.NoError(t, err)
	sig := Sign("tok", "1700000000", "nonce1", echostr)

	echo, err := m.VerifyURL(sig, "1700000000", "nonce1", echostr)
	require.NoError(t, err)
	require.Equal(t, vectorMessage, string(echo))

	_, err = m.VerifyURL(sig, "1700000001", "nonce1", echostr)
	require.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyURLMissingFields(t *testing.T) {
	m := testCrypt(t, "corp1")
	_, err := m.VerifyURL("sig", "", "nonce", "echo")
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestVerifyURLBadCiphertext(t *testing.T) {
	m := testCrypt(t, "corp1")
	echostr := "bm90IGEgdmFsaWQgZnJhbWU="
	sig := Sign("tok", "1", "n", echostr)
	_, err := m.VerifyURL(sig, "1", "n", echostr)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestReceiverMismatchRejected(t *testing.T) {
	ctx, err := NewContext("tok", testAESKey)
	require.NoError(t, err)

	encrypted, err := ctx.Bind("A").Seal([]byte("<xml/>"))
	require.NoError(t, err)
	sig := ctx.Sign("1", "n", encrypted)

	_, err = ctx.Bind("B").VerifyURL(sig, "1", "n", encrypted)
	require.ErrorIs(t, err, ErrDecrypt)

	// A receiver id that is a prefix of the real one must fail too.
	_, err = ctx.Bind("").VerifyURL(sig, "1", "n", encrypted)
	require.ErrorIs(t, err, ErrDecrypt)

	out, err := ctx.Bind("A").VerifyURL(sig, "1", "n", encrypted)
	require.NoError(t, err)
	require.Equal(t, "<xml/>", string(out))
}

func TestEncryptDecryptMsg(t *testing.T) {
	m := testCrypt(t, "corp1")
	reply := []byte("<xml><MsgType>markdown</MsgType></xml>")

	envelope, err := m.EncryptMsg(reply, "1700000000", "nonce1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(envelope), "<xml><Encrypt><![CDATA["), string(envelope))
	require.NotContains(t, string(envelope), "\n")

	var parsed ReplyEnvelope
	require.NoError(t, xml.Unmarshal(envelope, &parsed))
	encrypted, sig, ts, nonce := parsed.Fields()
	require.Equal(t, "1700000000", ts)
	require.Equal(t, "nonce1", nonce)
	require.Equal(t, Sign("tok", ts, nonce, encrypted), sig)

	out, err := m.DecryptMsg(sig, ts, nonce, envelope)
	require.NoError(t, err)
	require.Equal(t, reply, out)
}

func TestEncryptMsgDefaultsTimestamp(t *testing.T) {
	m := testCrypt(t, "corp1")
	envelope, err := m.EncryptMsg([]byte("<xml/>"), "", "n")
	require.NoError(t, err)

	var parsed ReplyEnvelope
	require.NoError(t, xml.Unmarshal(envelope, &parsed))
	require.NotEmpty(t, parsed.TimeStamp)

	_, err = m.EncryptMsg([]byte("<xml/>"), "1", "")
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestDecryptMsg(t *testing.T) {
	m := testCrypt(t, "corp1")
	encrypted, err := m.Seal([]byte(vectorMessage))
	require.NoError(t, err)
	body := []byte("<xml><ToUserName><![CDATA[corp1]]></ToUserName><AgentID><![CDATA[1]]></AgentID><Encrypt><![CDATA[" + encrypted + "]]></Encrypt></xml>")
	sig := Sign("tok", "1700000000", "nonce1", encrypted)

	out, err := m.DecryptMsg(sig, "1700000000", "nonce1", body)
	require.NoError(t, err)
	require.Equal(t, vectorMessage, string(out))

	_, err = m.DecryptMsg(sig, "1700000000", "nonce2", body)
	require.ErrorIs(t, err, ErrSignatureMismatch)

	_, err = m.DecryptMsg(sig, "1700000000", "nonce1", []byte("<xml><Encrypt></Encrypt></xml>"))
	require.ErrorIs(t, err, ErrMalformedInput)

	_, err = m.DecryptMsg(sig, "1700000000", "nonce1", []byte("not xml"))
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestDecryptFailuresIndistinguishable(t *testing.T) {
	ctx, err := NewContext("tok", testAESKey)
	require.NoError(t, err)
	m := ctx.Bind("corp1")

	wrongReceiver, err := ctx.Bind("other").Seal([]byte("x"))
	require.NoError(t, err)
	badPadding := encodeBase64(make([]byte, 32))

	for _, encrypted := range []string{wrongReceiver, badPadding, "%%%"} {
		sig := ctx.Sign("1", "n", encrypted)
		_, err := m.VerifyURL(sig, "1", "n", encrypted)
		require.Equal(t, ErrDecrypt, err)
	}
}
