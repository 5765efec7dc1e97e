// Package crypt implements the two stream ciphers this format layers files
// under: the outer AES-256-CBC envelope used for standalone save files, and
// the lightweight 3nK stream cipher used for certain entries inside the
// packaged asset archive.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"io"

	"github.com/scsparse/siigo/internal/wire"
	"github.com/scsparse/siigo/sii"
)

// siiEncryptedSignature is the magic 4 bytes "ScsC" read little-endian.
const siiEncryptedSignature = 0x43736353

// siiAESKey is the fixed 32-byte AES-256 key every SII envelope is
// encrypted under. It is an embedded constant of the format, documented by
// the SII_Decrypt project (github.com/TheLazyTomcat/SII_Decrypt).
var siiAESKey = [32]byte{
	0x2A, 0x5F, 0xCB, 0x17, 0x91, 0xD2, 0x2F, 0xB6, 0x02, 0x45, 0xB3, 0xD8, 0x36, 0x9E, 0xD0, 0xB2,
	0xC2, 0x73, 0x71, 0x56, 0x3F, 0xBF, 0x1F, 0x3C, 0x9E, 0xDF, 0x6B, 0x11, 0x82, 0x5A, 0x5D, 0x0A,
}

// DecryptAES reads the 60-byte envelope header (magic, HMAC, IV, declared
// plaintext length) and returns the AES-256-CBC/PKCS7 decrypted payload.
// The HMAC is read but never verified; the declared length is used only to
// preallocate the ciphertext buffer.
func DecryptAES(r io.Reader) ([]byte, error) {
	magic, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}
	if magic != siiEncryptedSignature {
		return nil, &sii.BadMagicError{Expected: siiEncryptedSignature, Found: magic}
	}

	var hmac [32]byte
	if _, err := io.ReadFull(r, hmac[:]); err != nil {
		return nil, err
	}

	var iv [16]byte
	if _, err := io.ReadFull(r, iv[:]); err != nil {
		return nil, err
	}

	declaredLen, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, declaredLen+aes.BlockSize)
	ciphertext, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	buf = append(buf, ciphertext...)

	if len(buf) == 0 || len(buf)%aes.BlockSize != 0 {
		return nil, sii.ErrDecryptionFailed
	}

	block, err := aes.NewCipher(siiAESKey[:])
	if err != nil {
		return nil, err
	}
	mode := cipher.NewCBCDecrypter(block, iv[:])
	mode.CryptBlocks(buf, buf)

	return unpadPKCS7(buf)
}

// unpadPKCS7 strips PKCS7 padding from a decrypted CBC buffer, validating
// that every padding byte agrees with the declared padding length.
func unpadPKCS7(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, sii.ErrDecryptionFailed
	}
	pad := int(buf[len(buf)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(buf) {
		return nil, sii.ErrDecryptionFailed
	}
	for _, b := range buf[len(buf)-pad:] {
		if int(b) != pad {
			return nil, sii.ErrDecryptionFailed
		}
	}
	return buf[:len(buf)-pad], nil
}
