package fetcher

import (
	"io"
	"mime"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody converts body to UTF-8 using the charset named in contentType.
// Bodies without a declared charset, or declaring UTF-8, pass through.
func decodeBody(body io.Reader, contentType string) (string, error) {
	name := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = strings.TrimSpace(params["charset"])
	}

	r := body
	if name != "" && !strings.EqualFold(name, "utf-8") && !strings.EqualFold(name, "utf8") {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return "", eris.Wrapf(err, "fetcher: unsupported charset %q", name)
		}
		r = enc.NewDecoder().Reader(body)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: read body")
	}
	return string(data), nil
}
