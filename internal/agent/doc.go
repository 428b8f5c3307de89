// Package agent defines the capability contract every service adapter must
// satisfy and the registry that maps adapter names to live instances. The
// orchestration engine dispatches workflow steps exclusively through this
// contract, which keeps Jira, Bitbucket, object-store, SQL and on-chain
// adapters interchangeable.
package agent
