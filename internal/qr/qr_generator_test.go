package qr

import (
	"bytes"
	"image/png"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	g := NewGenerator("secret", "https://menu.example.com", 256)

	enc, err := g.Encrypt(TableToken{TenantID: "tenant-1", TableID: "table-7"})
	require.NoError(t, err)
	assert.NotContains(t, enc, "tenant-1")

	tok, err := g.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tok.TenantID)
	assert.Equal(t, "table-7", tok.TableID)
}

func TestEncryptIsRandomized(t *testing.T) {
	g := NewGenerator("secret", "", 0)
	a, err := g.Encrypt(TableToken{TenantID: "t", TableID: "x"})
	require.NoError(t, err)
	b, err := g.Encrypt(TableToken{TenantID: "t", TableID: "x"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsTampering(t *testing.T) {
	g := NewGenerator("secret", "", 0)
	enc, err := g.Encrypt(TableToken{TenantID: "t", TableID: "x"})
	require.NoError(t, err)

	_, err = NewGenerator("other", "", 0).Decrypt(enc)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = g.Decrypt("!!!")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = g.Decrypt("AAAA")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPayloadFor(t *testing.T) {
	g := NewGenerator("secret", "https://menu.example.com", 256)

	payload, err := g.PayloadFor("joes-diner", TableToken{TenantID: "t1", TableID: "tb1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, "https://menu.example.com/m/joes-diner?t="))

	u, err := url.Parse(payload)
	require.NoError(t, err)
	tok, err := g.Decrypt(u.Query().Get("t"))
	require.NoError(t, err)
	assert.Equal(t, "tb1", tok.TableID)
}

func TestPNG(t *testing.T) {
	g := NewGenerator("secret", "", 128)
	img, err := g.PNG("https://menu.example.com/m/joes-diner?t=abc")
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 128, decoded.Bounds().Dx())
}
