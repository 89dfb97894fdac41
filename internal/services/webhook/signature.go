package webhook

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"log"
)

// ErrSignatureMismatch is returned when a webhook batch fails verification;
// callers must reject the batch before any event is processed.
var ErrSignatureMismatch = errors.New("webhook signature verification failed")

// VerifyECDSASignature checks a provider signature computed over
// timestamp + raw body against a PEM-encoded ECDSA public key (the scheme
// the email provider uses for event webhooks). The signature is
// base64-encoded ASN.1 DER.
func VerifyECDSASignature(publicKeyPEM, signature, timestamp string, body []byte) (bool, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return false, errors.New("failed to decode verification key PEM")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false, err
	}

	publicKey, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return false, errors.New("verification key is not an ECDSA public key")
	}

	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, err
	}

	digest := sha256.Sum256(append([]byte(timestamp), body...))

	return ecdsa.VerifyASN1(publicKey, digest[:], sigBytes), nil
}

// VerifyBatchSignature applies the per-batch verification policy: with no
// key configured verification is skipped, loudly, as a development-only
// bypass. With a key, a mismatch or malformed signature fails the batch.
func VerifyBatchSignature(publicKeyPEM, signature, timestamp string, body []byte) (bool, error) {
	if publicKeyPEM == "" {
		log.Printf("WARNING: webhook signature verification DISABLED - no verification key configured. Do not run this way in production.")
		return true, nil
	}

	valid, err := VerifyECDSASignature(publicKeyPEM, signature, timestamp, body)
	if err != nil {
		log.Printf("Webhook signature verification error: %v", err)
		return false, ErrSignatureMismatch
	}
	if !valid {
		return false, ErrSignatureMismatch
	}
	return true, nil
}
