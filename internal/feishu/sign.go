package feishu

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenSign computes the webhook signature for a secret-protected custom bot.
// The scheme keys an HMAC-SHA256 with "<timestamp>\n<secret>" over an empty
// message and base64-encodes the digest.
func GenSign(timestamp int64, secret string) string {
	key := fmt.Sprintf("%d\n%s", timestamp, secret)
	mac := hmac.New(sha256.New, []byte(key))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
