package syncbridge

import (
	"bytes"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPPusher posts snapshots to a peer's /api/sync/apply endpoint.
type HTTPPusher struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPPusher(endpoint, token string) *HTTPPusher {
	return &HTTPPusher{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *HTTPPusher) Push(snapshot Snapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build push request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "push request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("peer returned %s", resp.Status)
	}
	return nil
}

var _ Pusher = (*HTTPPusher)(nil)
