package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to a running host.
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

// StartRecording asks the host to capture a channel.
func (c *Client) StartRecording(req StartRequest) (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("StreamVault.StartRecording", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopRecording stops one channel, or all when login is empty.
func (c *Client) StopRecording(login string) (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("StreamVault.StopRecording", StopRequest{Login: login}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleRecording flips the recording state of a channel.
func (c *Client) ToggleRecording(req ToggleRequest) (*ToggleResponse, error) {
	var resp ToggleResponse
	if err := c.client.Call("StreamVault.ToggleRecording", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the host status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("StreamVault.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteRecording removes a finished recording through the host, so live
// outputs are refused.
func (c *Client) DeleteRecording(path string) (*DeleteResponse, error) {
	var resp DeleteResponse
	if err := c.client.Call("StreamVault.DeleteRecording", DeleteRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
