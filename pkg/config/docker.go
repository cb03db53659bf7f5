package config

import (
	"net"
	"net/url"
	"os"
	"sync"
)

const dockerHostGateway = "host.docker.internal"

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv file which exists in all Docker containers.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

func resolveHost(host string, inDocker bool) string {
	if inDocker && (host == "localhost" || host == "127.0.0.1") {
		return dockerHostGateway
	}
	return host
}

// ResolveURLForDocker maps a localhost endpoint to the Docker host gateway
// when running in a container, keeping scheme, port and path.
func ResolveURLForDocker(endpoint string) string {
	return resolveURL(endpoint, IsRunningInDocker())
}

func resolveURL(endpoint string, inDocker bool) string {
	if !inDocker || endpoint == "" {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	host := resolveHost(u.Hostname(), inDocker)
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}
	return u.String()
}

// ResolveOptionsForDocker rewrites the "host", "uri" and "url" options of a
// partition backing so that stores published on the Docker host stay
// reachable from inside a container. The input map is not modified.
func ResolveOptionsForDocker(options map[string]any) map[string]any {
	return resolveOptions(options, IsRunningInDocker())
}

func resolveOptions(options map[string]any, inDocker bool) map[string]any {
	if !inDocker || len(options) == 0 {
		return options
	}
	out := make(map[string]any, len(options))
	for k, v := range options {
		str, ok := v.(string)
		switch {
		case ok && k == "host":
			out[k] = resolveHost(str, inDocker)
		case ok && (k == "uri" || k == "url"):
			out[k] = resolveURL(str, inDocker)
		default:
			out[k] = v
		}
	}
	return out
}
