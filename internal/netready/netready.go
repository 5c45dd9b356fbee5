// Package netready decides whether the host has a usable network before
// the event listener starts.
package netready

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/sweeney/hall-direction/internal/status"
)

// pi-helper env var names (written to /run/pi-helper.env).
const (
	EnvNetworkType       = "NETWORK_TYPE"
	EnvNetworkIP         = "NETWORK_IP"
	EnvNetworkStatus     = "NETWORK_STATUS"
	EnvNetworkGateway    = "NETWORK_GATEWAY"
	EnvNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	EnvNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// ErrNotConnected is returned when no usable network is available.
var ErrNotConnected = errors.New("netready: network not connected")

// Checker reports the host's address once the network is up.
type Checker struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// InterfaceAddrs defaults to net.InterfaceAddrs.
	InterfaceAddrs func() ([]net.Addr, error)
}

// NewChecker returns a Checker reading the real environment and interfaces.
func NewChecker() *Checker {
	return &Checker{
		LookupEnv:      os.LookupEnv,
		InterfaceAddrs: net.InterfaceAddrs,
	}
}

// Connect returns the address the daemon is reachable on. pi-helper's
// NETWORK_STATUS wins when present; otherwise the first non-loopback IPv4
// interface address is used. There is no retry.
func (c *Checker) Connect() (net.IP, error) {
	if s, ok := c.LookupEnv(EnvNetworkStatus); ok && s != "" {
		if !strings.EqualFold(s, "connected") {
			return nil, fmt.Errorf("%w: %s=%s", ErrNotConnected, EnvNetworkStatus, s)
		}
		raw, _ := c.LookupEnv(EnvNetworkIP)
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, fmt.Errorf("%w: invalid %s %q", ErrNotConnected, EnvNetworkIP, raw)
		}
		return ip, nil
	}

	addrs, err := c.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("list interface addresses: %w", err)
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("%w: no routable IPv4 address", ErrNotConnected)
}

// Info returns the pi-helper network info, or nil when pi-helper has not
// written any.
func (c *Checker) Info() *status.NetworkInfo {
	s, _ := c.LookupEnv(EnvNetworkStatus)
	if s == "" {
		return nil
	}
	get := func(k string) string {
		v, _ := c.LookupEnv(k)
		return v
	}
	return &status.NetworkInfo{
		Type:       get(EnvNetworkType),
		IP:         get(EnvNetworkIP),
		Status:     s,
		Gateway:    get(EnvNetworkGateway),
		WifiStatus: get(EnvNetworkWifiStatus),
		SSID:       get(EnvNetworkWifiSSID),
	}
}
