// Package client is a Go client for the campusmart API. Likes and offer responses are
// applied locally first and rolled back when the server refuses them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"campusmart/internal/domain/entity"
	apperrors "campusmart/pkg/errors"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Tokens:     tokens,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type listData[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// do sends body as JSON and decodes the response data into out. Server failures come
// back as *errors.AppError with the server's code; transport failures as UNAVAILABLE.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 500 {
			return apperrors.Unavailable(fmt.Sprintf("server returned %d", resp.StatusCode), err)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		code, message := apperrors.CodeInternal, http.StatusText(resp.StatusCode)
		if env.Error != nil {
			code, message = env.Error.Code, env.Error.Message
		}
		return apperrors.New(code, message, resp.StatusCode, nil)
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// transportError marks network-class failures as retryable.
func transportError(err error) error {
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.Unavailable("network error", err)
	}
	return err
}

type Conversation struct {
	entity.Conversation
	OtherUserID string `json:"other_user_id"`
	UnreadCount int    `json:"unread_count"`
}

func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var out listData[Conversation]
	if err := c.do(ctx, http.MethodGet, "/v1/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) OpenConversation(ctx context.Context, otherUserID, listingID string) (*Conversation, error) {
	var out Conversation
	body := map[string]string{"other_user_id": otherUserID, "listing_id": listingID}
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns the conversation history and marks it read for the caller.
func (c *Client) Messages(ctx context.Context, conversationID string, limit int) ([]entity.Message, error) {
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out listData[entity.Message]
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

type SendMessageRequest struct {
	ReceiverID  string   `json:"receiver_id"`
	Content     string   `json:"content,omitempty"`
	IsOffer     bool     `json:"is_offer"`
	OfferAmount *float64 `json:"offer_amount,omitempty"`
	ListingID   string   `json:"listing_id,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*entity.Message, error) {
	var out entity.Message
	if err := c.do(ctx, http.MethodPost, "/v1/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OfferAction is one of "accept", "reject" or "rescind".
type OfferAction string

const (
	Accept  OfferAction = "accept"
	Reject  OfferAction = "reject"
	Rescind OfferAction = "rescind"
)

func (a OfferAction) status() entity.OfferStatus {
	switch a {
	case Accept:
		return entity.OfferAccepted
	case Reject:
		return entity.OfferRejected
	default:
		return entity.OfferRescinded
	}
}

func (c *Client) RespondToOffer(ctx context.Context, conversationID, messageID string, action OfferAction) (*entity.Message, error) {
	var out entity.Message
	if err := c.do(ctx, http.MethodPost, offerPath(conversationID, messageID, string(action)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CounterOffer(ctx context.Context, conversationID, messageID string, amount float64, content string) (*entity.Message, error) {
	var out entity.Message
	body := map[string]interface{}{"offer_amount": amount, "content": content}
	if err := c.do(ctx, http.MethodPost, offerPath(conversationID, messageID, "counter"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func offerPath(conversationID, messageID, action string) string {
	return "/v1/conversations/" + url.PathEscape(conversationID) + "/messages/" + url.PathEscape(messageID) + "/" + action
}

// LikeStatus is the server's view of a like. Likes is nil when the server could
// not read the counter back.
type LikeStatus struct {
	ListingID string `json:"listing_id"`
	Liked     bool   `json:"liked"`
	Delta     int    `json:"delta,omitempty"`
	Likes     *int   `json:"likes,omitempty"`
	Label     string `json:"label,omitempty"`
}

func (c *Client) ToggleLike(ctx context.Context, listingID string, currentlyLiked bool) (*LikeStatus, error) {
	var out LikeStatus
	body := map[string]bool{"currently_liked": currentlyLiked}
	if err := c.do(ctx, http.MethodPost, "/v1/listings/"+url.PathEscape(listingID)+"/like", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LikeStatus(ctx context.Context, listingID string) (*LikeStatus, error) {
	var out LikeStatus
	if err := c.do(ctx, http.MethodGet, "/v1/listings/"+url.PathEscape(listingID)+"/like", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
