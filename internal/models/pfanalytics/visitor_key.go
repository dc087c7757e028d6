package pfanalytics

import (
	"fmt"
	"net/netip"
	"strings"
)

const (
	unknownAddress  = "unknown"
	loopbackAddress = "127.0.0.1"
	sessionPrefix   = "session_"
)

// KeyResolver détermine la clé de déduplication d'un visiteur
type KeyResolver interface {
	Resolve(address, sessionID string) string
}

// AutoResolver utilise la session pour les adresses locales ou inconnues, l'adresse sinon
type AutoResolver struct{}

func (AutoResolver) Resolve(address, sessionID string) string {
	if IsLocal(address) {
		return sessionPrefix + sessionID
	}
	return address
}

type IPResolver struct{}

func (IPResolver) Resolve(address, _ string) string {
	return address
}

type SessionResolver struct{}

func (SessionResolver) Resolve(_, sessionID string) string {
	return sessionPrefix + sessionID
}

func NewKeyResolver(strategy string) (KeyResolver, error) {
	switch strategy {
	case "", "auto":
		return AutoResolver{}, nil
	case "ip":
		return IPResolver{}, nil
	case "session":
		return SessionResolver{}, nil
	default:
		return nil, fmt.Errorf("stratégie de clé visiteur inconnue: %q", strategy)
	}
}

// NormalizeAddress choisit l'adresse du visiteur. Si l'adresse directe est vide
// ou locale, la première entrée de X-Forwarded-For est utilisée.
func NormalizeAddress(direct, forwardedFor string) string {
	address := strings.TrimSpace(direct)
	if address == "" || isLoopback(address) {
		if first, _, _ := strings.Cut(forwardedFor, ","); strings.TrimSpace(first) != "" {
			address = strings.TrimSpace(first)
		}
	}
	if address == "" {
		return unknownAddress
	}

	addr, err := netip.ParseAddr(address)
	if err != nil {
		return address
	}
	addr = addr.Unmap()
	if addr == netip.IPv6Loopback() {
		return loopbackAddress
	}
	return addr.String()
}

// IsLocal indique une adresse qui ne distingue pas les visiteurs
func IsLocal(address string) bool {
	return address == "" || address == unknownAddress || isLoopback(address)
}

func isLoopback(address string) bool {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return false
	}
	return addr.Unmap().IsLoopback()
}
