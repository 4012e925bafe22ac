// Package qr encodes table tokens and renders table QR codes.
package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/url"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidToken = errors.New("invalid table token")

// TableToken is what a printed table QR code carries.
type TableToken struct {
	TenantID string `json:"t"`
	TableID  string `json:"tb"`
}

type Generator struct {
	secret  []byte
	baseURL string
	size    int
}

func NewGenerator(secret, baseURL string, size int) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	if size <= 0 {
		size = 256
	}
	return &Generator{secret: hashed[:], baseURL: baseURL, size: size}
}

// Encrypt seals the token with AES-GCM and returns URL-safe base64.
func (g *Generator) Encrypt(tok TableToken) (string, error) {
	data, err := json.Marshal(tok)
	if err != nil {
		return "", err
	}

	gcm, err := g.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (g *Generator) Decrypt(token string) (TableToken, error) {
	var tok TableToken

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return tok, ErrInvalidToken
	}

	gcm, err := g.aead()
	if err != nil {
		return tok, err
	}
	if len(raw) < gcm.NonceSize() {
		return tok, ErrInvalidToken
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	data, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return tok, ErrInvalidToken
	}

	if err := json.Unmarshal(data, &tok); err != nil || tok.TenantID == "" || tok.TableID == "" {
		return TableToken{}, ErrInvalidToken
	}
	return tok, nil
}

func (g *Generator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(g.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// TableURL is the menu link printed on a table.
func (g *Generator) TableURL(slug, token string) string {
	return g.baseURL + "/m/" + url.PathEscape(slug) + "?t=" + url.QueryEscape(token)
}

// PayloadFor encrypts the token and builds the table URL in one step.
func (g *Generator) PayloadFor(slug string, tok TableToken) (string, error) {
	enc, err := g.Encrypt(tok)
	if err != nil {
		return "", err
	}
	return g.TableURL(slug, enc), nil
}

// PNG renders content as a QR code image.
func (g *Generator) PNG(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, g.size)
}
