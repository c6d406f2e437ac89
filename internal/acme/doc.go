// Package acme renews and lists certificates with acme.sh running inside a
// Docker container.
//
// acme.sh itself is never reimplemented. Every operation becomes one
// acme.sh invocation inside the configured container, run through a
// ContainerExec backend:
//
//   - CLIExec runs `docker exec <container> acme.sh ...` through the
//     package executor.
//   - APIExec uses the Docker Engine API (exec create, attach, inspect), so
//     only the daemon socket is required.
//
// # Usage
//
//	m, err := acme.NewFromConfig(cfg.ACME)
//	res, err := m.Renew(ctx, "example.com", false)
//	if res.Skipped {
//	    // not due yet (acme.sh exit status 2)
//	}
//
// # Testing
//
// The CLI backend uses a package executor that can be replaced:
//
//	mockExec := &executor.MockExecutor{}
//	acme.SetExecutor(mockExec)
//	defer acme.ResetExecutor()
package acme
