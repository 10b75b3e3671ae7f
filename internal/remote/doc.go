// Package remote exposes a remote collection as a deferred, composable
// query.
//
// A Client names the service, the dialect and the collaborators; From
// starts a typed Query against one endpoint:
//
//	client := remote.NewClient("https://api.example.com", remote.WithDialect("odata"))
//	plans, err := remote.From[WeekPlan](client, "weekplans").
//		Where(queryir.Contains(queryir.Field("name"), "push")).
//		OrderBy("name", queryir.Descending).
//		Include("weekPlanSets").ThenInclude("exercise").
//		Skip(20).Take(10).
//		List(ctx)
//
// Enumeration (All, List, Page) is the only operation that performs I/O.
// It takes a context for cancellation; timeouts belong to the Fetcher.
// Transport failures and decode failures are reported as *Error with
// distinct codes so callers can tell a dead server from a malformed body.
package remote
