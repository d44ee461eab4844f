// Package pkg provides the core libraries of stackgate, a decision engine
// that gates npm packages through a private registry mirror.
//
// # Overview
//
// Before a package may be installed, stackgate decides whether the exact
// version is already mirrored, whether it can be made available by
// dispatching the mirror's caching workflow, or whether it must be refused.
// The pkg directory is organized into these areas:
//
//  1. Domain logic: [resolve], [compat], [license], [gate], [manifest]
//  2. Orchestration: [pipeline] runs batches of requests concurrently
//  3. Infrastructure: [cache], [history], [config], [httputil],
//     [observability], [errors]
//  4. [integrations]: npm registry and GitHub Actions clients
//
// # Architecture
//
// The data flow of one request:
//
//	name@spec
//	    ↓
//	[resolve] (public registry, dist-tags and ranges)
//	    ↓
//	[compat] (engines.node against the local runtime, advisory)
//	    ↓
//	[license] (transitive walk against the allowlist)
//	    ↓
//	[gate] (mirror lookup, workflow dispatch, polling)
//	    ↓
//	[pipeline.Outcome] → [manifest] pin, [history] entry
//
// # Quick Start
//
//	cfg, _ := config.Load("")
//	runner := pipeline.NewRunner(registry, g, cfg.LicensePolicy(), store, logger)
//	batch := runner.Run(ctx, []pipeline.Request{{Name: "express", Spec: "^4.17.0"}})
//	for _, o := range batch.Outcomes {
//	    fmt.Println(o.Request, o.Kind, o.Version)
//	}
//
// [resolve]: github.com/matzehuels/stackgate/pkg/resolve
// [compat]: github.com/matzehuels/stackgate/pkg/compat
// [license]: github.com/matzehuels/stackgate/pkg/license
// [gate]: github.com/matzehuels/stackgate/pkg/gate
// [manifest]: github.com/matzehuels/stackgate/pkg/manifest
// [pipeline]: github.com/matzehuels/stackgate/pkg/pipeline
// [pipeline.Outcome]: github.com/matzehuels/stackgate/pkg/pipeline#Outcome
// [cache]: github.com/matzehuels/stackgate/pkg/cache
// [history]: github.com/matzehuels/stackgate/pkg/history
// [config]: github.com/matzehuels/stackgate/pkg/config
// [httputil]: github.com/matzehuels/stackgate/pkg/httputil
// [observability]: github.com/matzehuels/stackgate/pkg/observability
// [errors]: github.com/matzehuels/stackgate/pkg/errors
// [integrations]: github.com/matzehuels/stackgate/pkg/integrations
package pkg
