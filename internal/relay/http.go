package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/optin-mailer/internal/domain"
)

// maxErrorBody caps how much of a provider error response ends up in the
// error message.
const maxErrorBody = 512

func postJSON(ctx context.Context, client HTTPDoer, transport domain.EmailServiceType, endpoint string, payload interface{}, header http.Header) (*http.Response, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, &RelayError{Transport: transport, Err: fmt.Errorf("marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, nil, &RelayError{Transport: transport, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, transport, req)
}

func do(client HTTPDoer, transport domain.EmailServiceType, req *http.Request) (*http.Response, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, &RelayError{Transport: transport, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return resp, body, &RelayError{
			Transport:  transport,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrRejected, bytes.TrimSpace(snippet)),
		}
	}
	return resp, body, nil
}
