package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/thushan/qlite/internal/core/constants"
)

// Family identifies the wire protocol a backend speaks
type Family string

const (
	FamilyNative Family = "native"
	FamilyOpenAI Family = "openai-compatible"
)

func (f Family) String() string {
	return string(f)
}

// BackendDescriptor is the identity of the selected inference backend.
// It's created once at startup and never mutated afterwards.
type BackendDescriptor struct {
	Name   string
	Host   string
	Family Family
	Port   int
}

func NewBackendDescriptor(name, host string, port int, family Family) BackendDescriptor {
	return BackendDescriptor{
		Name:   name,
		Host:   host,
		Port:   port,
		Family: family,
	}
}

// DefaultBackendDescriptor is what auto-detect settles on when nothing answers
func DefaultBackendDescriptor() BackendDescriptor {
	return NewBackendDescriptor(constants.ProviderTypeOllama, constants.DefaultBackendHost, constants.DefaultOllamaPort, FamilyNative)
}

// Address returns host:port suitable for net.Dial
func (d BackendDescriptor) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// BaseURL returns the http base url for the backend, without a trailing slash
func (d BackendDescriptor) BaseURL() string {
	return "http://" + d.Address()
}

// DisplayName is used in client facing error bodies
func (d BackendDescriptor) DisplayName() string {
	switch d.Name {
	case constants.ProviderTypeOllama:
		return constants.ProviderDisplayOllama
	case constants.ProviderTypeLMStudio:
		return constants.ProviderDisplayLMStudio
	case constants.ProviderTypeVLLM:
		return constants.ProviderDisplayVLLM
	case constants.ProviderTypeOpenAICompat:
		return constants.ProviderDisplayOpenAI
	}
	if d.Name == "" {
		return "backend"
	}
	return d.Name
}

func (d BackendDescriptor) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Name, d.Family, d.Address())
}

// ParseBackendURL turns a url like http://localhost:11434 into a descriptor.
// A missing port defaults to the family's well known port.
func ParseBackendURL(raw string, family Family) (BackendDescriptor, error) {
	if raw == "" {
		return BackendDescriptor{}, fmt.Errorf("backend url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return BackendDescriptor{}, fmt.Errorf("invalid backend url %q: %w", raw, err)
	}
	if u.Scheme != "http" {
		return BackendDescriptor{}, fmt.Errorf("unsupported backend scheme %q (only http)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return BackendDescriptor{}, fmt.Errorf("backend url %q has no host", raw)
	}

	port := constants.DefaultOllamaPort
	if family == FamilyOpenAI {
		port = constants.DefaultLMStudioPort
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return BackendDescriptor{}, fmt.Errorf("invalid backend port %q", p)
		}
	}

	name := constants.ProviderTypeOllama
	if family == FamilyOpenAI {
		name = constants.ProviderTypeOpenAICompat
	}

	return NewBackendDescriptor(name, host, port, family), nil
}

// ParseFamily normalises the various ways users spell a backend type
func ParseFamily(s string) (Family, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case constants.ProviderTypeOllama, string(FamilyNative):
		return FamilyNative, true
	case constants.ProviderPrefixOpenAI1, constants.ProviderPrefixOpenAI2, constants.ProviderPrefixOpenAI3,
		constants.ProviderPrefixLMStudio1, constants.ProviderPrefixLMStudio2, constants.ProviderPrefixLMStudio3,
		constants.ProviderTypeVLLM:
		return FamilyOpenAI, true
	}
	return "", false
}
