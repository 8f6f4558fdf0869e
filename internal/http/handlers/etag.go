package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondOwnedJSONWithETag renders payload once and tags it with a weak
// validator bound to owner, so two accounts with identical lists never share
// an ETag. A matching If-None-Match short-circuits to 304.
func RespondOwnedJSONWithETag(ctx *gin.Context, owner string, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		RespondInternal(ctx, "Server Error")
		return
	}

	etag := ownedETag(owner, body)
	ctx.Header("ETag", etag)

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", body)
}

func ownedETag(owner string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(owner))
	h.Write([]byte{0})
	h.Write(body)

	return `W/"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}

// weak comparison: W/"x" and "x" match
func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || currentETag == "" {
		return false
	}
	if headerValue == "*" {
		return true
	}

	current := opaqueTag(currentETag)
	for _, part := range strings.Split(headerValue, ",") {
		if opaqueTag(part) == current {
			return true
		}
	}
	return false
}

func opaqueTag(raw string) string {
	v := strings.TrimSpace(raw)
	return strings.TrimPrefix(v, "W/")
}
