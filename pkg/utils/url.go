package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Parses a string of the form <scheme>://<host>:<port> and returns the
// host and port as a string, or an error if the string is not a valid URL.
// If the port is not specified, it defaults to 9090.
// The scheme must be "tcp".
func ParseGrpcUrl(urlstr string) (string, error) {
	return parseTcpUrl(urlstr, 9090)
}

func ParseHttpUrl(urlstr string) (string, error) {
	return parseTcpUrl(urlstr, 8080)
}

func parseTcpUrl(urlstr string, defaultPort int) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	switch uri.Scheme {
	case "tcp", "tcp4", "tcp6":
	default:
		return "", errors.New("Unsupported protocol: " + uri.Scheme)
	}

	if uri.Port() == "" {
		return net.JoinHostPort(uri.Hostname(), strconv.Itoa(defaultPort)), nil
	}

	return uri.Host, nil
}

// FormatTcpUrl is the inverse of ParseGrpcUrl.
func FormatTcpUrl(hostport string) string {
	return fmt.Sprintf("tcp://%s", hostport)
}

// WithPort replaces the port of a tcp:// URL.
func WithPort(urlstr string, port int) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}
	uri.Host = net.JoinHostPort(uri.Hostname(), strconv.Itoa(port))
	return uri.String(), nil
}
