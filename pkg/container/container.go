package container

import (
	"os"
	"strings"
)

const (
	RuntimeNone       = ""
	RuntimeDocker     = "docker"
	RuntimeContainerd = "containerd"
	RuntimeKubernetes = "kubernetes"
)

var (
	dockerEnvFile = "/.dockerenv"
	initCGroup    = "/proc/1/cgroup"
)

// IsContainerised reports whether we look to be running inside a container
func IsContainerised() bool {
	return Runtime() != RuntimeNone
}

// Runtime names the container runtime we appear to be under, empty on bare
// metal. Kubernetes wins over the runtime underneath it.
func Runtime() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return RuntimeKubernetes
	}
	if _, err := os.Stat(dockerEnvFile); err == nil {
		return RuntimeDocker
	}
	return runtimeFromCGroup(initCGroup)
}

func runtimeFromCGroup(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeNone
	}
	content := string(data)
	switch {
	case strings.Contains(content, "kubepods"):
		return RuntimeKubernetes
	case strings.Contains(content, "docker"):
		return RuntimeDocker
	case strings.Contains(content, "containerd"):
		return RuntimeContainerd
	}
	return RuntimeNone
}
