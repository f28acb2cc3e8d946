// Package discovery advertises relays on the local network over mDNS and
// finds them from clients.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/piyushdolas8/skillswap/shared/logger"
)

const (
	// ServiceType is the mDNS service relays register under.
	ServiceType = "_skillswap._tcp"

	// DefaultTimeout bounds one lookup.
	DefaultTimeout = 2 * time.Second
)

// Relay is one discovered relay.
type Relay struct {
	Instance string
	Host     string
	Port     int
	// Info holds the key=value TXT records.
	Info map[string]string
}

// Addr returns host:port.
func (r Relay) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// URL returns the relay's base HTTP URL.
func (r Relay) URL() string {
	scheme := "http"
	if r.Info["tls"] == "1" {
		scheme = "https"
	}
	return scheme + "://" + r.Addr()
}

// Advertiser keeps a relay registered until Shutdown.
type Advertiser struct {
	server *mdns.Server
}

// Advertise registers a relay listening on port. instance defaults to the
// hostname.
func Advertise(instance string, port int, info map[string]string) (*Advertiser, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, encodeTXT(info))
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	logger.Infof("discovery: advertising %s on port %d", instance, port)
	return &Advertiser{server: server}, nil
}

// Shutdown stops answering queries.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Lookup browses for relays until timeout or ctx ends. Results are sorted
// by instance name with duplicates removed.
func Lookup(ctx context.Context, timeout time.Duration) ([]Relay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(map[string]Relay)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for e := range entries {
			if r, ok := parseEntry(e); ok {
				found[r.Addr()] = r
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-collected
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}

	out := make([]Relay, 0, len(found))
	for _, r := range found {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instance != out[j].Instance {
			return out[i].Instance < out[j].Instance
		}
		return out[i].Addr() < out[j].Addr()
	})
	return out, nil
}

func parseEntry(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Relay{}, false
	}
	if !strings.Contains(e.Name, ServiceType) {
		return Relay{}, false
	}
	instance := e.Name
	if i := strings.Index(instance, "."+ServiceType); i > 0 {
		instance = instance[:i]
	}
	return Relay{
		Instance: unescape(instance),
		Host:     e.AddrV4.String(),
		Port:     e.Port,
		Info:     decodeTXT(e.InfoFields),
	}, true
}

func encodeTXT(info map[string]string) []string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+info[k])
	}
	return out
}

func decodeTXT(fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, _ := strings.Cut(f, "=")
		if k != "" {
			out[k] = v
		}
	}
	return out
}

// unescape drops the DNS escaping mdns applies to spaces in instance names.
func unescape(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
