package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AgentCommunication talks to the deployment agent that keeps the resource
// registry. It is optional: a stack runs fine without one.
type AgentCommunication struct {
	Endpoint string
	Type     string // tcp or unix

	SocketPath string
	HostPort   string
	BaseURL    string

	Token string // bearer token

	httpClient *http.Client
}

// New parses endpoint and attaches the bearer token. Both are required.
func New(endpoint, token string) (*AgentCommunication, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("agent endpoint is not set")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("agent token is not set")
	}

	ac, err := NewAgentCommunication(endpoint)
	if err != nil {
		return nil, err
	}

	ac.Token = token
	return ac, nil
}

// NewAgentCommunication parses an endpoint like:
//
//	unix:///var/run/agent.sock
//	tcp://example.com:8080
//	http://example.com:8080
func NewAgentCommunication(endpoint string) (*AgentCommunication, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("invalid agent endpoint %q: %w", endpoint, err)
	}

	ac := &AgentCommunication{Endpoint: endpoint}

	switch strings.ToLower(u.Scheme) {
	case "unix":
		// url.Parse treats unix:///path as Path="/path"
		if u.Path == "" {
			return nil, fmt.Errorf("unix endpoint missing socket path: %q", endpoint)
		}
		ac.Type = "unix"
		ac.SocketPath = u.Path

		// The transport ignores the host, but net/http needs a valid URL.
		ac.BaseURL = "http://agent"

	case "tcp", "http":
		if u.Host == "" {
			return nil, fmt.Errorf("tcp endpoint missing host:port: %q", endpoint)
		}
		ac.Type = "tcp"
		ac.HostPort = u.Host
		ac.BaseURL = "http://" + u.Host

	default:
		return nil, fmt.Errorf("unsupported agent endpoint scheme %q (use unix://, tcp:// or http://)", u.Scheme)
	}

	return ac, nil
}

// Client returns an *http.Client configured to talk to the agent over tcp or unix,
// plus the BaseURL to use for requests. The client is built once.
func (a *AgentCommunication) Client() (*http.Client, string, error) {
	if a.httpClient != nil {
		return a.httpClient, a.BaseURL, nil
	}

	switch a.Type {
	case "tcp":
		a.httpClient = &http.Client{
			Timeout: 60 * time.Second,
		}

	case "unix":
		dialer := &net.Dialer{Timeout: 10 * time.Second}

		tr := &http.Transport{
			// ignore the addr and always dial the unix socket path
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.DialContext(ctx, "unix", a.SocketPath)
			},
		}

		a.httpClient = &http.Client{
			Transport: tr,
			Timeout:   60 * time.Second,
		}

	default:
		return nil, "", fmt.Errorf("invalid agent communication type %q", a.Type)
	}

	return a.httpClient, a.BaseURL, nil
}

func (a *AgentCommunication) NewRequest(
	ctx context.Context,
	method string,
	path string,
	body io.Reader,
) (*http.Request, error) {

	req, err := http.NewRequestWithContext(
		ctx,
		method,
		a.BaseURL+path,
		body,
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+a.Token)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}
