// Package registry announces a running scanner instance to a coordination
// server so fleets of camera nodes can be discovered.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeartbeatSeconds is both the announce interval and the request timeout.
const HeartbeatSeconds = 5

// RegisterRequest is the heartbeat body.
type RegisterRequest struct {
	Id        string `json:"id"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	TimeStamp int64  `json:"timestamp"`
}

// RegisterResponse is the coordination server's acknowledgement.
type RegisterResponse struct {
	Id      string `json:"id"`
	Success bool   `json:"success"`
}

// Client periodically announces one scanner instance.
type Client struct {
	serverAddr string
	instanceIP string
	port       int
	id         string
	http       *resty.Client
	log        *zap.Logger
}

// NewClient builds a heartbeat client for the coordination server at
// host:port, announcing a scanner reachable at instanceIP:instancePort.
func NewClient(host string, port int, instanceIP string, instancePort int) *Client {
	return &Client{
		serverAddr: fmt.Sprintf("%s:%d", host, port),
		instanceIP: instanceIP,
		port:       instancePort,
		id:         uuid.NewString(),
		http:       resty.New().SetTimeout(HeartbeatSeconds * time.Second),
		log:        zap.L().Named("registry"),
	}
}

// ID returns the instance identifier sent with every heartbeat.
func (c *Client) ID() string {
	return c.id
}

// Run sends a heartbeat immediately and then every HeartbeatSeconds until
// the context is cancelled.
func (c *Client) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(HeartbeatSeconds * time.Second)
	defer ticker.Stop()
	c.announce(ctx)
	for {
		select {
		case <-ctx.Done():
			c.log.Info("heartbeat stopped")
			return
		case <-ticker.C:
			c.announce(ctx)
		}
	}
}

func (c *Client) announce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("heartbeat panic recovered", zap.Any("panic", r))
		}
	}()
	var respBody RegisterResponse
	url := fmt.Sprintf("http://%s/api/register", c.serverAddr)
	reqBody := RegisterRequest{
		Id:        c.id,
		IP:        c.instanceIP,
		Port:      c.port,
		TimeStamp: time.Now().Unix(),
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&respBody).
		Post(url)
	if err != nil {
		c.log.Error("heartbeat request failed", zap.Error(err))
		return
	}
	if resp.IsError() {
		c.log.Error("heartbeat rejected",
			zap.String("status", resp.Status()),
			zap.String("body", resp.String()))
	}
}
