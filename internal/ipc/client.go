package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"hoist/internal/events"
	"hoist/internal/request"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, args any, reply any) error {
	return c.client.Call(serviceName+"."+method, args, reply)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartUpload begins an upload immediately, bypassing the queue.
func (c *Client) StartUpload(opts request.Options) (*UploadResponse, error) {
	var resp UploadResponse
	if err := c.call("StartUpload", UploadRequest{Options: opts}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddToQueue appends an upload to the persisted queue.
func (c *Client) AddToQueue(opts request.Options) (*UploadResponse, error) {
	var resp UploadResponse
	if err := c.call("AddToQueue", UploadRequest{Options: opts}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels a queued or running upload.
func (c *Client) Cancel(id string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.call("Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelAll cancels every running upload.
func (c *Client) CancelAll() (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.call("CancelAll", CancelAllRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearQueue removes every queued upload.
func (c *Client) ClearQueue() (*ClearQueueResponse, error) {
	var resp ClearQueueResponse
	if err := c.call("ClearQueue", ClearQueueRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResumeQueue starts the head of a queue restored from storage.
func (c *Client) ResumeQueue() (*ResumeQueueResponse, error) {
	var resp ResumeQueueResponse
	if err := c.call("ResumeQueue", ResumeQueueRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList lists queued uploads.
func (c *Client) QueueList() (*QueueListResponse, error) {
	var resp QueueListResponse
	if err := c.call("QueueList", QueueListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FileInfo describes a file as seen by the daemon.
func (c *Client) FileInfo(path string) (*FileInfoResponse, error) {
	var resp FileInfoResponse
	if err := c.call("FileInfo", FileInfoRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns buffered events after since.
func (c *Client) Events(since uint64, limit int, eventType events.Type) (*EventsResponse, error) {
	var resp EventsResponse
	req := EventsRequest{Since: since, Limit: limit, Type: eventType}
	if err := c.call("Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification sends a test notification via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
