package ipc

import (
	"context"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
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
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// call invokes method and gives up when ctx ends. A call abandoned this way
// leaves the connection unusable; callers close the client afterwards.
func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	pending := c.client.Go(ServiceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	select {
	case done := <-pending.Done:
		return fromWire(done.Error)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit registers a download.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.call(ctx, "Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel stops a running job.
func (c *Client) Cancel(ctx context.Context, id string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.call(ctx, "Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analyze probes a URL for its item count.
func (c *Client) Analyze(ctx context.Context, url string) (*AnalyzeResponse, error) {
	var resp AnalyzeResponse
	if err := c.call(ctx, "Analyze", AnalyzeRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Jobs lists the job collection.
func (c *Client) Jobs(ctx context.Context) (*JobsResponse, error) {
	var resp JobsResponse
	if err := c.call(ctx, "Jobs", JobsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Job returns a single job.
func (c *Client) Job(ctx context.Context, id string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.call(ctx, "Job", JobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove drops finished jobs by id.
func (c *Client) Remove(ctx context.Context, ids []string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.call(ctx, "Remove", RemoveRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear drops every finished job.
func (c *Client) Clear(ctx context.Context) (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.call(ctx, "Clear", ClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watch fetches job updates after req.Since.
func (c *Client) Watch(ctx context.Context, req WatchRequest) (*WatchResponse, error) {
	var resp WatchResponse
	if err := c.call(ctx, "Watch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests daemon shutdown.
func (c *Client) Stop(ctx context.Context) (*StopResponse, error) {
	var resp StopResponse
	if err := c.call(ctx, "Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(ctx context.Context, req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call(ctx, "LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification(ctx context.Context) (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call(ctx, "TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
