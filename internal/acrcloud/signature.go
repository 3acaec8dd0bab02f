package acrcloud

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strconv"
)

const (
	identifyPath     = "/v1/identify"
	dataType         = "audio"
	signatureVersion = "1"
)

// StringToSign builds the canonical request string signed for /v1/identify.
func StringToSign(accessKey string, timestamp int64) string {
	return "POST\n" + identifyPath + "\n" + accessKey + "\n" + dataType + "\n" + signatureVersion + "\n" + strconv.FormatInt(timestamp, 10)
}

// Sign returns the base64 HMAC-SHA1 signature of the canonical request string.
// It has no hidden state: equal inputs always give equal signatures.
func Sign(accessKey, accessSecret string, timestamp int64) string {
	mac := hmac.New(sha1.New, []byte(accessSecret))
	mac.Write([]byte(StringToSign(accessKey, timestamp)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
