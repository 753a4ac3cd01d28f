package common

import (
	"bytes"
	"crypto/sha1" // #nosec G505 -- fingerprint only
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// EchoDocument is the reflection of a single request. It is built once per
// request and never mutated after the response is written.
type EchoDocument struct {
	Path              string                 `json:"path"`
	Headers           map[string]string      `json:"headers"`
	Method            string                 `json:"method"`
	Body              string                 `json:"body"`
	Json              json.RawMessage        `json:"json,omitempty"`
	Cookies           map[string]string      `json:"cookies"`
	Fresh             bool                   `json:"fresh"`
	Hostname          string                 `json:"hostname"`
	Ip                string                 `json:"ip"`
	Ips               []string               `json:"ips"`
	Protocol          string                 `json:"protocol"`
	Query             map[string]interface{} `json:"query"`
	Subdomains        []string               `json:"subdomains"`
	Xhr               bool                   `json:"xhr"`
	Os                OsInfo                 `json:"os"`
	Connection        ConnectionInfo         `json:"connection"`
	ClientCertificate *ClientCertificate     `json:"clientCertificate,omitempty"`
	Env               map[string]string      `json:"env,omitempty"`

	// Jwt is only serialized when JwtEnabled is set; a nil token is then
	// written as an explicit null.
	Jwt        *JwtToken `json:"-"`
	JwtEnabled bool      `json:"-"`
}

type OsInfo struct {
	Hostname string `json:"hostname"`
}

type ConnectionInfo struct {
	ServerName string `json:"servername"`
}

type JwtToken struct {
	Header    map[string]interface{} `json:"header"`
	Payload   map[string]interface{} `json:"payload"`
	Signature string                 `json:"signature"`
}

type ClientCertificate struct {
	Subject        string `json:"subject"`
	Issuer         string `json:"issuer"`
	SubjectAltName string `json:"subjectaltname,omitempty"`
	SerialNumber   string `json:"serialNumber"`
	ValidFrom      string `json:"validFrom"`
	ValidTo        string `json:"validTo"`
	Fingerprint    string `json:"fingerprint"`
	Fingerprint256 string `json:"fingerprint256"`
	Raw            string `json:"raw"`
}

const certTimeLayout = "Jan _2 15:04:05 2006 GMT"

func NewClientCertificate(cert *x509.Certificate) *ClientCertificate {
	if cert == nil || len(cert.Raw) == 0 {
		return nil
	}
	sha1Sum := sha1.Sum(cert.Raw) // #nosec G401
	sha256Sum := sha256.Sum256(cert.Raw)

	var altNames []string
	for _, dns := range cert.DNSNames {
		altNames = append(altNames, "DNS:"+dns)
	}
	for _, ip := range cert.IPAddresses {
		altNames = append(altNames, "IP Address:"+ip.String())
	}
	for _, email := range cert.EmailAddresses {
		altNames = append(altNames, "email:"+email)
	}
	for _, uri := range cert.URIs {
		altNames = append(altNames, "URI:"+uri.String())
	}

	return &ClientCertificate{
		Subject:        cert.Subject.String(),
		Issuer:         cert.Issuer.String(),
		SubjectAltName: strings.Join(altNames, ", "),
		SerialNumber:   strings.ToUpper(cert.SerialNumber.Text(16)),
		ValidFrom:      cert.NotBefore.UTC().Format(certTimeLayout),
		ValidTo:        cert.NotAfter.UTC().Format(certTimeLayout),
		Fingerprint:    colonHex(sha1Sum[:]),
		Fingerprint256: colonHex(sha256Sum[:]),
		Raw:            base64.StdEncoding.EncodeToString(cert.Raw),
	}
}

func colonHex(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return strings.Join(parts, ":")
}

type echoDocumentAlias EchoDocument

type echoDocumentWithJwt struct {
	*echoDocumentAlias
	Jwt *JwtToken `json:"jwt"`
}

func (d *EchoDocument) MarshalJSON() ([]byte, error) {
	if !d.JwtEnabled {
		return SonicCfg.Marshal((*echoDocumentAlias)(d))
	}
	return SonicCfg.Marshal(&echoDocumentWithJwt{
		echoDocumentAlias: (*echoDocumentAlias)(d),
		Jwt:               d.Jwt,
	})
}

// Encode serializes the document, indented when pretty is set.
func (d *EchoDocument) Encode(pretty bool) ([]byte, error) {
	raw, err := d.MarshalJSON()
	if err != nil || !pretty {
		return raw, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
