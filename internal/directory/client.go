package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/mqtt"
)

// commandUserExists is the directory service command for user lookups.
const commandUserExists = "check_user_exists"

// Requester issues correlated requests over the bus. *rpc.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, topic string, payload any) (json.RawMessage, error)
}

// Client queries the remote user directory.
type Client struct {
	rpc    Requester
	prefix string
}

// NewClient creates a directory client using the given topic prefix,
// typically config.RPC.DirectoryPrefix.
func NewClient(rpc Requester, prefix string) *Client {
	return &Client{rpc: rpc, prefix: prefix}
}

type userExistsRequest struct {
	UserID string `json:"userId"`
}

type userExistsResponse struct {
	Exists bool `json:"exists"`
}

// UserExists reports whether the directory knows the given user.
//
// A false return with a nil error is an authoritative "no such user".
// A non-nil error means the directory could not be consulted at all.
func (c *Client) UserExists(ctx context.Context, userID string) (bool, error) {
	topic := mqtt.Topics{}.RPCRequest(c.prefix, commandUserExists)

	raw, err := c.rpc.Request(ctx, topic, userExistsRequest{UserID: userID})
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", userID, err)
	}

	var resp userExistsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, fmt.Errorf("decode user directory reply: %w", err)
	}

	return resp.Exists, nil
}
