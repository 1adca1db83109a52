package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/logging"
)

// envelope mirrors the server's {data, error} response body.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeResponse decodes a JSON response into target. Bodies wrapped in a
// {data, error} envelope are unwrapped. target may be nil.
func DecodeResponse(resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	var env envelope
	_ = json.Unmarshal(body, &env)

	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = logging.RedactURL(resp.Request.URL.String())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return errors.NewTransportError("http", endpoint, resp.StatusCode, msg, nil)
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	payload := body
	if len(env.Data) > 0 {
		payload = env.Data
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}
