package document

import "bytes"

// signatures is the fixed table of accepted leading-byte patterns. Sniffing
// runs on the actual payload, never on the filename or declared MIME type;
// a disguised upload fails here no matter what it claims to be.
var signatures = []struct {
	prefix      []byte
	contentType string
}{
	{[]byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
	{[]byte{0xff, 0xd8, 0xff, 0xe1}, "image/jpeg"},
	{[]byte{0xff, 0xd8, 0xff, 0xe2}, "image/jpeg"},
	{[]byte{0x89, 0x50, 0x4e, 0x47}, "image/png"},
	// RIFF container; WEBP is the only RIFF format accepted here.
	{[]byte{0x52, 0x49, 0x46, 0x46}, "image/webp"},
	{[]byte{0x25, 0x50, 0x44, 0x46}, "application/pdf"},
}

// Sniff matches the payload's leading bytes against the signature table and
// returns the detected content type.
func Sniff(data []byte) (string, bool) {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.contentType, true
		}
	}
	return "", false
}

// AcceptedContentType reports whether a declared content type appears in the
// signature table at all.
func AcceptedContentType(contentType string) bool {
	for _, sig := range signatures {
		if sig.contentType == contentType {
			return true
		}
	}
	return false
}
