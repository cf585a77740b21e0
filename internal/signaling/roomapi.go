package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BioHazard786/warpmeet/internal/dns"
)

var ErrRoomBootstrap = errors.New("room bootstrap failed")

var httpClient = &http.Client{
	Timeout:   10 * time.Second,
	Transport: &http.Transport{DialContext: dns.DialContext},
}

type createRoomResponse struct {
	RoomID string `json:"roomID"`
}

// CreateRoom asks the relay at createURL for a fresh room identifier.
func CreateRoom(ctx context.Context, createURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, createURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRoomBootstrap, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRoomBootstrap, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %s: %s", ErrRoomBootstrap, resp.Status, body)
	}

	var out createRoomResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMessageSize)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRoomBootstrap, err)
	}
	if out.RoomID == "" {
		return "", fmt.Errorf("%w: empty room id", ErrRoomBootstrap)
	}
	return out.RoomID, nil
}
