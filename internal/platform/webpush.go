package platform

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// aes128gcm payload layout: salt(16) || record size(4) || key id
// length(1) || key id || ciphertext. The key id carries the sender's
// uncompressed P-256 public key.
const (
	saltLen      = 16
	publicKeyLen = 65
	headerLen    = saltLen + 4 + 1 + publicKeyLen
	minRecordLen = 18
)

const (
	webPushInfo = "WebPush: info\x00"
	cekInfo     = "Content-Encoding: aes128gcm\x00"
	nonceInfo   = "Content-Encoding: nonce\x00"
)

// decryptPayload opens a push payload encrypted to this subscription:
// ECDH agreement with the sender's key from the header, the web push
// key derivation, then AES-128-GCM over the single record. The record
// padding delimiter is verified and stripped.
func decryptPayload(priv *ecdh.PrivateKey, authSecret, payload []byte) ([]byte, error) {
	if len(payload) < headerLen {
		return nil, errors.New("payload shorter than header")
	}
	salt := payload[:saltLen]
	recordSize := binary.BigEndian.Uint32(payload[saltLen : saltLen+4])
	if recordSize < minRecordLen {
		return nil, fmt.Errorf("record size %d too small", recordSize)
	}
	if int(payload[saltLen+4]) != publicKeyLen {
		return nil, errors.New("unexpected sender key length")
	}
	senderKeyBytes := payload[saltLen+5 : headerLen]
	body := payload[headerLen:]

	senderKey, err := ecdh.P256().NewPublicKey(senderKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("sender public key: %w", err)
	}
	shared, err := priv.ECDH(senderKey)
	if err != nil {
		return nil, fmt.Errorf("ECDH key agreement failed: %w", err)
	}

	// IKM binds both parties' public keys to the derived secret.
	keyInfo := make([]byte, 0, len(webPushInfo)+2*publicKeyLen)
	keyInfo = append(keyInfo, webPushInfo...)
	keyInfo = append(keyInfo, priv.PublicKey().Bytes()...)
	keyInfo = append(keyInfo, senderKeyBytes...)

	ikm, err := hkdfDerive(shared, authSecret, keyInfo, 32)
	if err != nil {
		return nil, err
	}
	cek, err := hkdfDerive(ikm, salt, []byte(cekInfo), 16)
	if err != nil {
		return nil, err
	}
	nonce, err := hkdfDerive(ikm, salt, []byte(nonceInfo), 12)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	plain, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("payload authentication failed: %w", err)
	}
	return trimRecordPadding(plain)
}

// hkdfDerive runs HKDF-SHA256 extract and expand in one step.
func hkdfDerive(secret, salt, info []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return out, nil
}

// trimRecordPadding strips the padding of a final record: any number of
// zero octets preceded by the 0x02 delimiter.
func trimRecordPadding(plain []byte) ([]byte, error) {
	i := len(plain) - 1
	for i >= 0 && plain[i] == 0 {
		i--
	}
	if i < 0 || plain[i] != 0x02 {
		return nil, errors.New("missing record delimiter")
	}
	return plain[:i], nil
}
