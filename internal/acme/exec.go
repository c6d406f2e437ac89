package acme

import (
	"bytes"
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/executor"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// ContainerExec runs a command inside a running container
type ContainerExec interface {
	Exec(ctx context.Context, container string, cmd ...string) (*executor.Result, error)
	Available(ctx context.Context) error
}

// cmdExecutor is the command executor (can be replaced for testing)
var cmdExecutor executor.CommandExecutor = executor.NewSystemExecutor()

// SetExecutor allows tests to inject a mock executor
func SetExecutor(exec executor.CommandExecutor) {
	cmdExecutor = exec
}

// ResetExecutor resets the executor to the default system executor
func ResetExecutor() {
	cmdExecutor = executor.NewSystemExecutor()
}

// CLIExec shells out to `docker exec`
type CLIExec struct{}

// Exec runs `docker exec <container> cmd...`
func (e *CLIExec) Exec(ctx context.Context, container string, cmd ...string) (*executor.Result, error) {
	if err := e.Available(ctx); err != nil {
		return nil, err
	}
	args := append([]string{"exec", container}, cmd...)
	return cmdExecutor.Run(ctx, "docker", args...)
}

// Available checks that the docker CLI is installed
func (e *CLIExec) Available(ctx context.Context) error {
	if _, err := cmdExecutor.LookPath("docker"); err != nil {
		return nberrors.Wrap(nberrors.ErrCodeExternal, "docker is not installed", err)
	}
	return nil
}

// dockerAPI is the subset of the Engine API client used for exec
type dockerAPI interface {
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	Ping(ctx context.Context) (types.Ping, error)
}

// APIExec talks to the Docker Engine API directly, so no docker CLI is needed
type APIExec struct {
	api dockerAPI
}

// NewAPIExec connects using DOCKER_HOST and friends from the environment
func NewAPIExec() (*APIExec, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeExternal, "cannot create docker client", err)
	}
	return &APIExec{api: cli}, nil
}

// Exec creates an exec instance, collects its demultiplexed output and
// reports the exit code the same way the CLI backend does.
func (e *APIExec) Exec(ctx context.Context, container string, cmd ...string) (*executor.Result, error) {
	logger.DebugFields("docker exec (api)", map[string]interface{}{
		"container": container,
		"cmd":       cmd,
	})

	created, err := e.api.ContainerExecCreate(ctx, container, types.ExecConfig{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, nberrors.WrapSubject(nberrors.ErrCodeExternal, container, err)
	}

	attach, err := e.api.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return nil, nberrors.WrapSubject(nberrors.ErrCodeExternal, container, err)
	}
	defer attach.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, attach.Reader); err != nil {
		return nil, nberrors.WrapSubject(nberrors.ErrCodeExternal, container, err)
	}

	inspect, err := e.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return nil, nberrors.WrapSubject(nberrors.ErrCodeExternal, container, err)
	}

	res := &executor.Result{ExitCode: inspect.ExitCode, Output: buf.Bytes()}
	if inspect.ExitCode != 0 {
		name := "acme.sh"
		if len(cmd) > 0 {
			name = cmd[0]
		}
		return res, nberrors.External(name, inspect.ExitCode, buf.String(), nil)
	}
	return res, nil
}

// Available pings the Docker daemon
func (e *APIExec) Available(ctx context.Context) error {
	if _, err := e.api.Ping(ctx); err != nil {
		return nberrors.Wrap(nberrors.ErrCodeExternal, "docker daemon is not reachable", err)
	}
	return nil
}
