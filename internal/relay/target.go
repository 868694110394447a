package relay

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

const (
	maxHostnameLength = 253
	maxLabelLength    = 63
)

// hostnames maps and validates names without the STD3 letter-digit-hyphen
// restriction, so LAN names such as roku_tv resolve as typed.
var hostnames = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
	idna.ValidateLabels(false),
)

// NormalizeAddress checks that raw names a single host (IP literal or DNS
// name, no port, no path) and returns it in canonical form.
func NormalizeAddress(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", fmt.Errorf("%w: address is empty", ErrInvalidAddress)
	}

	if strings.HasPrefix(addr, "[") && strings.HasSuffix(addr, "]") {
		addr = addr[1 : len(addr)-1]
	}

	if ip, err := netip.ParseAddr(addr); err == nil {
		if ip.Zone() != "" {
			return "", fmt.Errorf("%w: zoned address %q not supported", ErrInvalidAddress, raw)
		}
		return ip.Unmap().String(), nil
	}

	if strings.ContainsAny(addr, "/?#@\\:%[] ") || strings.IndexFunc(addr, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: %q is not a host", ErrInvalidAddress, raw)
	}

	host, err := hostnames.ToASCII(strings.TrimSuffix(addr, "."))
	if err != nil || host == "" || len(host) > maxHostnameLength {
		return "", fmt.Errorf("%w: %q is not a valid hostname", ErrInvalidAddress, raw)
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > maxLabelLength {
			return "", fmt.Errorf("%w: %q is not a valid hostname", ErrInvalidAddress, raw)
		}
	}
	return strings.ToLower(host), nil
}

// ValidateOperand checks an operand for the given operation.
func ValidateOperand(op Operation, operand string) error {
	if operand == "" {
		return fmt.Errorf("%w: %s requires a value", ErrEmptyOperand, op)
	}
	if strings.IndexFunc(operand, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: control characters in %s", ErrInvalidOperand, op)
	}
	if op != OpQuery {
		return nil
	}

	for _, seg := range strings.Split(operand, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: empty segment in query path %q", ErrInvalidOperand, operand)
		case ".", "..":
			return fmt.Errorf("%w: relative segment in query path %q", ErrInvalidOperand, operand)
		}
	}
	return nil
}

// NewRequest validates and normalizes a forward request.
func NewRequest(op Operation, address, operand string) (Request, error) {
	if !op.Valid() {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}

	addr, err := NormalizeAddress(address)
	if err != nil {
		return Request{}, err
	}
	if err := ValidateOperand(op, operand); err != nil {
		return Request{}, err
	}

	return Request{Address: addr, Operation: op, Operand: operand}, nil
}

// URL returns the device control URL for the request. The operand is escaped
// once per path segment, so the device decodes back exactly Operand. Keys and
// app IDs are a single segment; query paths keep their slashes.
func (r Request) URL() string {
	var path string
	if r.Operation == OpQuery {
		segs := strings.Split(r.Operand, "/")
		for i, s := range segs {
			segs[i] = url.PathEscape(s)
		}
		path = strings.Join(segs, "/")
	} else {
		path = url.PathEscape(r.Operand)
	}

	host := net.JoinHostPort(r.Address, strconv.Itoa(ControlPort))
	return "http://" + host + "/" + string(r.Operation) + "/" + path
}
