package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Sign computes hex(HMAC-SHA256(secret, "<remote_order_id>|<remote_payment_id>")).
func (v *SignatureVerifier) Sign(remoteOrderID, remotePaymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(remoteOrderID + "|" + remotePaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *SignatureVerifier) Verify(remoteOrderID, remotePaymentID, signature string) bool {
	if len(v.secret) == 0 {
		return false
	}
	expected := v.Sign(remoteOrderID, remotePaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
