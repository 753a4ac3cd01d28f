package echo

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/httpecho/httpecho/common"
)

var jwtParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// ExtractJwt strips a leading scheme ("Bearer ...") from a header value by
// keeping its last whitespace-separated token.
func ExtractJwt(headerValue string) string {
	fields := strings.Fields(headerValue)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// DecodeJwt decodes header and payload without verifying the signature.
// Tokens signed with an algorithm we do not know are still decoded.
func DecodeJwt(token string) (*common.JwtToken, error) {
	claims := jwt.MapClaims{}
	parsed, parts, err := jwtParser.ParseUnverified(token, claims)
	if err != nil {
		var ve *jwt.ValidationError
		unverifiable := errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorUnverifiable != 0
		if !unverifiable || parsed == nil {
			return nil, err
		}
	}

	return &common.JwtToken{
		Header:    parsed.Header,
		Payload:   claims,
		Signature: parts[2],
	}, nil
}
