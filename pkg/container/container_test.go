package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeFromCGroup(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		return p
	}

	assert.Equal(t, RuntimeDocker, runtimeFromCGroup(write("docker", "12:pids:/docker/3f2a\n")))
	assert.Equal(t, RuntimeKubernetes, runtimeFromCGroup(write("k8s", "0::/kubepods/burstable/pod1/docker-abc\n")))
	assert.Equal(t, RuntimeContainerd, runtimeFromCGroup(write("ctrd", "0::/system.slice/containerd.service\n")))
	assert.Equal(t, RuntimeNone, runtimeFromCGroup(write("host", "0::/init.scope\n")))
	assert.Equal(t, RuntimeNone, runtimeFromCGroup(filepath.Join(dir, "missing")))
}

func TestRuntime_Kubernetes(t *testing.T) {
	t.Setenv("KUBERNETES_SERVICE_HOST", "10.0.0.1")
	assert.Equal(t, RuntimeKubernetes, Runtime())
	assert.True(t, IsContainerised())
}
