package config

import (
	"fmt"
	"net/url"
	"os"
)

// Default configuration values (production)
const (
	DefaultHost     = "gatherly.qzz.io"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // optional, empty by default
	DefaultTURNUser = "gatherly"
	DefaultTURNPass = "gatherly-secret"
)

// Config holds application configuration
type Config struct {
	// Host is the signaling server host, optionally with a port
	Host string

	// Insecure selects ws:// instead of wss://
	Insecure bool

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay routes all media through TURN
	ForceRelay bool

	// NegotiationTimeoutSec bounds how long a peer may stay mid-negotiation
	// before its session is retired. Zero disables the watchdog.
	NegotiationTimeoutSec int
}

// Options for loading config with CLI flag overrides
type Options struct {
	Host       string
	Insecure   bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	host := opts.Host
	if host == "" {
		host = os.Getenv("GATHERLY_HOST")
	}
	if host == "" {
		host = DefaultHost
	}

	stunServer := opts.STUNServer
	if stunServer == "" {
		stunServer = os.Getenv("STUN_SERVER")
	}
	if stunServer == "" {
		stunServer = DefaultSTUN
	}

	turnServer := opts.TURNServer
	if turnServer == "" {
		turnServer = os.Getenv("TURN_SERVER")
	}
	if turnServer == "" {
		turnServer = DefaultTURN
	}

	turnUser := opts.TURNUser
	if turnUser == "" {
		turnUser = os.Getenv("TURN_USERNAME")
	}
	if turnUser == "" {
		turnUser = DefaultTURNUser
	}

	turnPass := opts.TURNPass
	if turnPass == "" {
		turnPass = os.Getenv("TURN_PASSWORD")
	}
	if turnPass == "" {
		turnPass = DefaultTURNPass
	}

	insecure := opts.Insecure
	if !insecure && os.Getenv("GATHERLY_INSECURE") == "1" {
		insecure = true
	}

	return &Config{
		Host:                  host,
		Insecure:              insecure,
		STUNServer:            stunServer,
		TURNServer:            turnServer,
		TURNUser:              turnUser,
		TURNPass:              turnPass,
		ForceRelay:            opts.ForceRelay,
		NegotiationTimeoutSec: 30,
	}, nil
}

// SignalingURL returns the websocket endpoint for a room and participant:
// {ws|wss}://<host>/ws/<roomId>/<participantId>
func (c *Config) SignalingURL(roomID, participantID string) string {
	scheme := "wss"
	if c.Insecure {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s/ws/%s/%s",
		scheme, c.Host, url.PathEscape(roomID), url.PathEscape(participantID))
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
