// Package client talks to the order API and keeps a local fallback copy of
// the orders it writes, so a failed request never loses an order.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"food-order-service/apperrors"
	"food-order-service/models"

	"github.com/gorilla/websocket"
)

type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      models.UserView `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

type OrderLine struct {
	MenuItemID uint     `json:"menuItemId"`
	Quantity   int      `json:"quantity"`
	Price      *float64 `json:"price,omitempty"`
}

type OrderRequest struct {
	Reference       string      `json:"reference,omitempty"`
	RestaurantID    uint        `json:"restaurantId"`
	Items           []OrderLine `json:"items"`
	TotalAmount     *float64    `json:"totalAmount,omitempty"`
	DeliveryAddress string      `json:"deliveryAddress"`
	Phone           string      `json:"phone"`
}

// Event is a realtime order notification.
type Event struct {
	Type  string       `json:"type"`
	Order models.Order `json:"order"`
}

// Client is a thin JSON client for the order API. It is safe for concurrent
// use; Login and Register remember the token for later calls.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return c.session(ctx, "/api/auth/register", req)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.session(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	return c.session(ctx, "/api/auth/admin/login", map[string]string{"email": email, "password": password})
}

func (c *Client) session(ctx context.Context, path string, body any) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, path, body, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

// CreateOrder places an order. Replaying a Reference returns the stored order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*models.Order, error) {
	var out struct {
		Order models.Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	return c.list(ctx, "/api/orders")
}

func (c *Client) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return c.list(ctx, "/api/orders/all")
}

func (c *Client) list(ctx context.Context, path string) ([]models.Order, error) {
	var out struct {
		Orders []models.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	var out struct {
		Order models.Order `json:"order"`
	}
	path := fmt.Sprintf("/api/orders/%d/status", id)
	if err := c.do(ctx, http.MethodPut, path, map[string]any{"status": status}, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// do sends one request. Transport failures and 5xx answers become
// ErrUpstreamUnavailable; other error bodies are mapped back to their kind.
// A cancelled or expired ctx is returned as ctx.Err().
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperrors.Upstream(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperrors.Upstream(err)
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		if resp.StatusCode >= 500 {
			return apperrors.Upstream(fmt.Errorf("%s %s: %s", method, path, e.Error))
		}
		return apperrors.FromCode(e.Code, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Subscribe streams realtime order events to fn until ctx is cancelled or the
// connection drops.
func (c *Client) Subscribe(ctx context.Context, fn func(Event)) error {
	u, err := url.Parse(c.baseURL + "/api/orders/ws")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.Token())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return apperrors.Unauthorized("websocket subscription rejected")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.Upstream(err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				return apperrors.Unauthorized("subscription ended by server")
			}
			return apperrors.Upstream(err)
		}
		fn(ev)
	}
}
