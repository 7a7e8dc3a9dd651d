package upstream

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// decodeBody decodes a response body according to its Content-Encoding header.
// Supports chained encodings (e.g. "gzip, br") and the algorithms we advertise
// in Accept-Encoding: br, gzip, zstd, deflate. For deflate, both zlib-wrapped
// and raw deflate are handled.
func decodeBody(encoding string, body []byte) ([]byte, error) {
	if encoding == "" {
		return body, nil
	}
	compressions := strings.Split(encoding, ",")
	for i := len(compressions) - 1; i >= 0; i-- {
		switch strings.TrimSpace(strings.ToLower(compressions[i])) {
		case "br":
			r := brotli.NewReader(bytes.NewReader(body))
			out, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			body = out
		case "gzip":
			gr, err := gzip.NewReader(bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			out, err := io.ReadAll(gr)
			cerr := gr.Close()
			if err != nil {
				return nil, err
			}
			if cerr != nil {
				return nil, cerr
			}
			body = out
		case "zstd":
			dec, err := zstd.NewReader(bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			out, err := io.ReadAll(dec)
			dec.Close()
			if err != nil {
				return nil, err
			}
			body = out
		case "deflate":
			// Try zlib-wrapped first (RFC)
			zr, err := zlib.NewReader(bytes.NewReader(body))
			if err == nil {
				out, err2 := io.ReadAll(zr)
				cerr := zr.Close()
				if err2 != nil {
					return nil, err2
				}
				if cerr != nil {
					return nil, cerr
				}
				body = out
				break
			}
			// Fallback to raw DEFLATE
			fr := flate.NewReader(bytes.NewReader(body))
			out, err2 := io.ReadAll(fr)
			cerr := fr.Close()
			if err2 != nil {
				return nil, err2
			}
			if cerr != nil {
				return nil, cerr
			}
			body = out
		case "compress", "identity", "":
			// No action
		default:
			return nil, fmt.Errorf("unsupported content-encoding: %q", compressions[i])
		}
	}
	return body, nil
}
